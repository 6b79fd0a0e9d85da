package handler

const (
	// RootPath is the root path the route group.
	RootPath = "/"

	// APIPath is the base path for the authenticated REST surface.
	APIPath = RootPath + "api"

	// ErrNilACDFatalLogMsg is used if app or cfg or db var pointer is nil.
	ErrNilACDFatalLogMsg = "app, cfg or db is nil"
)
