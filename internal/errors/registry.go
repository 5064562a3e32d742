package errors

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category Category
	Message  string
	Detail   string
	DocURL   string
}

// Error codes used across the CLI.
const (
	CodeConfigInvalid      = "E120"
	CodeConfigSave         = "E121"
	CodeConfigInvalidValue = "E122"
	CodeNotAProject        = "E141"
	CodeUnknownComponent   = "E143"
	CodeRegistryUnavail    = "E144"
	CodeInvalidTarget      = "E147"
	CodeFileWriteFailure   = "E148"
	CodeCyclicDependency   = "E149"
	CodeInvalidManifest    = "E150"
	CodeDuplicateComponent = "E151"
	CodeSourceFileMissing  = "E152"
)

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// ============================================
	// Config Errors (E120-E139)
	// ============================================

	"E120": {
		Category: CategoryConfig,
		Message:  "Invalid configuration",
		Detail:   "The fiberui.json file could not be read or parsed.",
		DocURL:   "https://fiberui.dev/docs/errors/E120",
	},
	"E121": {
		Category: CategoryConfig,
		Message:  "Configuration could not be saved",
		Detail:   "Writing fiberui.json failed.",
		DocURL:   "https://fiberui.dev/docs/errors/E121",
	},
	"E122": {
		Category: CategoryConfig,
		Message:  "Invalid configuration value",
		Detail:   "A configuration value is outside of its allowed range.",
		DocURL:   "https://fiberui.dev/docs/errors/E122",
	},

	// ============================================
	// CLI and Registry Errors (E140-E159)
	// ============================================

	"E141": {
		Category: CategoryCLI,
		Message:  "Not a fiberui project",
		Detail:   "The current directory is not a fiberui project. Run 'fiberui init' first.",
		DocURL:   "https://fiberui.dev/docs/errors/E141",
	},
	"E143": {
		Category: CategoryRegistry,
		Message:  "Component not found",
		Detail:   "The requested component is not available in the registry.",
		DocURL:   "https://fiberui.dev/docs/errors/E143",
	},
	"E144": {
		Category: CategoryRegistry,
		Message:  "Registry unavailable",
		Detail:   "Unable to read the component registry.",
		DocURL:   "https://fiberui.dev/docs/errors/E144",
	},
	"E147": {
		Category: CategoryCLI,
		Message:  "Invalid target directory",
		Detail:   "The target directory could not be used for installation.",
		DocURL:   "https://fiberui.dev/docs/errors/E147",
	},
	"E148": {
		Category: CategoryInstall,
		Message:  "File write failed",
		Detail:   "A component file could not be written to the project.",
		DocURL:   "https://fiberui.dev/docs/errors/E148",
	},
	"E149": {
		Category: CategoryResolve,
		Message:  "Cyclic component dependency",
		Detail:   "A component depends on itself through its registry dependencies.",
		DocURL:   "https://fiberui.dev/docs/errors/E149",
	},
	"E150": {
		Category: CategoryRegistry,
		Message:  "Invalid registry manifest",
		Detail:   "The registry manifest contains a malformed component entry.",
		DocURL:   "https://fiberui.dev/docs/errors/E150",
	},
	"E151": {
		Category: CategoryRegistry,
		Message:  "Duplicate component",
		Detail:   "Two registry entries share the same component name.",
		DocURL:   "https://fiberui.dev/docs/errors/E151",
	},
	"E152": {
		Category: CategoryRegistry,
		Message:  "Registry file missing",
		Detail:   "A file listed by a component is not present in the registry source.",
		DocURL:   "https://fiberui.dev/docs/errors/E152",
	},
}
