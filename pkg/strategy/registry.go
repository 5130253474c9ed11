package strategy

// Compatibility classifies how well a module embeds into a generated
// binary (§4.4 step 3).
type Compatibility int

const (
	FullyCompatible Compatibility = iota
	PartiallyCompatible
	Incompatible
)

// ModuleCompatibility is one entry of the static module-compatibility
// registry the strategist consults.
type ModuleCompatibility struct {
	Module       string
	Compat       Compatibility
	Limitations  []string
	Reasons      []string
}

// DefaultRegistry is the static table of module embeddability, covering
// every module named in §4.10. Every listed module is fully or partially
// compatible; a module absent from the table is classified Incompatible
// by Classify.
var DefaultRegistry = map[string]ModuleCompatibility{
	"command":    {Module: "command", Compat: FullyCompatible},
	"shell":      {Module: "shell", Compat: FullyCompatible},
	"package":    {Module: "package", Compat: FullyCompatible},
	"service":    {Module: "service", Compat: FullyCompatible},
	"debug":      {Module: "debug", Compat: FullyCompatible},
	"file":       {Module: "file", Compat: FullyCompatible},
	"copy":       {Module: "copy", Compat: FullyCompatible},
	"template":   {Module: "template", Compat: FullyCompatible},
	"stat":       {Module: "stat", Compat: FullyCompatible},
	"get_url":    {Module: "get_url", Compat: FullyCompatible},
	"uri":        {Module: "uri", Compat: FullyCompatible},
	"git":        {Module: "git", Compat: PartiallyCompatible, Limitations: []string{"requires git binary present on target host"}},
	"unarchive":  {Module: "unarchive", Compat: FullyCompatible},
	"archive":    {Module: "archive", Compat: FullyCompatible},
	"setup":      {Module: "setup", Compat: PartiallyCompatible, Limitations: []string{"hardware facts gathering needs cgo on some libc combinations"}},
	"user":       {Module: "user", Compat: FullyCompatible},
	"group":      {Module: "group", Compat: FullyCompatible},
}

// Classify returns the registry entry for module, defaulting to
// Incompatible with an "unknown module" reason when module is not
// registered (new/unlisted modules never silently ride along).
func Classify(module string) ModuleCompatibility {
	if c, ok := DefaultRegistry[module]; ok {
		return c
	}
	return ModuleCompatibility{Module: module, Compat: Incompatible, Reasons: []string{"not present in the module-compatibility registry"}}
}
