package deviceprofiles

// CreateOutput for POST /device-profiles (201 Created)
type CreateOutput struct {
	Location string `header:"Location" doc:"URL of the created profile"`
	ETag     string `header:"ETag"     doc:"Entity tag of the created profile"`
	Body     DeviceProfile
}

// ListOutput for GET /device-profiles
type ListOutput struct {
	Link string `header:"Link" doc:"RFC 8288 pagination links"`
	Body ListData
}

// GetOutput for GET /device-profiles/{id}. Body is nil on 304.
type GetOutput struct {
	Status int
	ETag   string `header:"ETag" doc:"Entity tag; send it as If-Match to update"`
	Body   *DeviceProfile
}

// UpdateOutput for PATCH /device-profiles/{id}
type UpdateOutput struct {
	ETag string `header:"ETag" doc:"New entity tag"`
	Body DeviceProfile
}
