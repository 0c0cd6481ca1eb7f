package templates

// ListOutput for GET /templates
type ListOutput struct {
	Link string `header:"Link" doc:"RFC 8288 pagination links"`
	Body TemplateList
}

// GetOutput for GET /templates/{id}
type GetOutput struct {
	Body Template
}
