package rules

// defaultRules covers the usual build outputs and editor/OS droppings.
var defaultRules = []Rule{
	{Pattern: "node_modules", Kind: KindDir, Description: "npm/yarn dependencies"},
	{Pattern: "target", Kind: KindDir, Description: "Cargo/Maven build output"},
	{Pattern: "build", Kind: KindDir, Description: "generic build output"},
	{Pattern: "dist", Kind: KindDir, Description: "distribution bundles"},
	{Pattern: "__pycache__", Kind: KindDir, Description: "Python bytecode cache"},
	{Pattern: ".gradle", Kind: KindDir, Description: "Gradle cache"},
	{Pattern: ".pytest_cache", Kind: KindDir, Description: "pytest cache"},
	{Pattern: ".mypy_cache", Kind: KindDir, Description: "mypy cache"},
	{Pattern: "*.pyc", Kind: KindFile, Description: "Python bytecode"},
	{Pattern: "*.o", Kind: KindFile, Description: "object files"},
	{Pattern: "*.class", Kind: KindFile, Description: "Java class files"},
	{Pattern: ".DS_Store", Kind: KindFile, Description: "macOS folder metadata"},
	{Pattern: "Thumbs.db", Kind: KindFile, Description: "Windows thumbnail cache"},
	{Pattern: "*~", Kind: KindFile, Description: "editor backups"},
	{Pattern: "*.swp", Kind: KindFile, Description: "vim swap files"},
}

// defaultProtect keeps version control metadata out of reach.
var defaultProtect = []string{".git", ".hg", ".svn"}

// Defaults returns the built-in rule set. The returned set is a fresh copy.
func Defaults() *Set {
	return &Set{
		Rules:   append([]Rule(nil), defaultRules...),
		Protect: append([]string(nil), defaultProtect...),
	}
}

// DefaultProtect returns the built-in protect patterns.
func DefaultProtect() []string {
	return append([]string(nil), defaultProtect...)
}
