package errors

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category   Category
	Message    string
	Detail     string
	Suggestion string
}

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// Configuration errors (E100-E199)

	"E100": {
		Category:   CategoryConfig,
		Message:    "configuration file not found",
		Detail:     "No pixelvault.json was found at the given path.",
		Suggestion: "Create pixelvault.json or point --config at an existing file.",
	},
	"E101": {
		Category:   CategoryConfig,
		Message:    "configuration file is not valid JSON",
		Suggestion: "Check pixelvault.json for trailing commas or unquoted keys.",
	},
	"E102": {
		Category:   CategoryConfig,
		Message:    "backend URL missing or invalid",
		Detail:     "The gateway proxies every auth call to the backend API and cannot start without its URL.",
		Suggestion: "Set backend.url in pixelvault.json or the PIXELVAULT_BACKEND_URL environment variable.",
	},
	"E103": {
		Category:   CategoryConfig,
		Message:    "invalid duration value",
		Suggestion: "Use Go duration syntax, e.g. \"30s\", \"5m\", \"720h\".",
	},
	"E104": {
		Category:   CategoryConfig,
		Message:    "invalid trusted proxy entry",
		Detail:     "Trusted proxies must be IP addresses or CIDR ranges.",
		Suggestion: "Use entries like \"10.0.0.1\" or \"10.0.0.0/8\".",
	},
	"E105": {
		Category:   CategoryConfig,
		Message:    "media storage misconfigured",
		Detail:     "S3 staging needs a bucket name; disk staging needs a directory.",
		Suggestion: "Set media.s3.bucket for S3 staging, or media.dir for disk staging.",
	},
	"E106": {
		Category:   CategoryConfig,
		Message:    "invalid SameSite value",
		Suggestion: "Use \"lax\", \"strict\", or \"none\" for cookie.sameSite.",
	},

	// Startup errors (E200-E299)

	"E200": {
		Category:   CategoryStartup,
		Message:    "listener failed to start",
		Suggestion: "Check that the address is free and the process may bind to it.",
	},
	"E201": {
		Category:   CategoryStartup,
		Message:    "media staging directory unavailable",
		Suggestion: "Check that the directory exists and is writable.",
	},
}
