// Package catalog holds the static extension domain data: the supported
// archetypes, the Chrome permissions the platform will declare, and the
// common product patterns shown to users. Everything here is compiled in
// so request validation never depends on the database.
package catalog

const (
	TypePopup         = "popup"
	TypeContentScript = "content_script"
	TypeBackground    = "background"
	TypeDevTools      = "devtools"
	TypeOptions       = "options"
)

// Archetype describes one supported extension shape and the scaffold it
// implies. DefaultPermissions reference cataloged permissions only.
type Archetype struct {
	ID                 string   `json:"id"`
	Name               string   `json:"name"`
	Description        string   `json:"description"`
	Complexity         string   `json:"complexity"`
	UseCases           []string `json:"use_cases"`
	Examples           []string `json:"examples"`
	RequiredFiles      []string `json:"required_files"`
	DefaultPermissions []string `json:"default_permissions"`
	ManifestKeys       []string `json:"manifest_keys"`
	Keywords           []string `json:"-"`
}

type Permission struct {
	ID          string   `json:"id"`
	Description string   `json:"description"`
	RequiredFor []string `json:"required_for"`
	Risk        string   `json:"risk"`
}

// Pattern is a product category with a typical permission footprint,
// used for discovery endpoints and for keyword scoring in the analyzer.
type Pattern struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Examples    []string `json:"examples"`
	Permissions []string `json:"permissions"`
	Keywords    []string `json:"-"`
}

var archetypes = []Archetype{
	{
		ID:                 TypePopup,
		Name:               "Popup Extension",
		Description:        "Extension with a popup interface accessible from the browser toolbar",
		Complexity:         "Simple",
		UseCases:           []string{"Quick actions", "Settings", "Mini-apps", "Status displays"},
		Examples:           []string{"Password generator", "Unit converter", "Quick notes"},
		RequiredFiles:      []string{"manifest.json", "popup.html", "popup.js", "popup.css"},
		DefaultPermissions: []string{"storage"},
		ManifestKeys:       []string{"action"},
		Keywords:           []string{"popup", "toolbar", "button", "click", "quick", "converter", "generator", "counter"},
	},
	{
		ID:                 TypeContentScript,
		Name:               "Content Script Extension",
		Description:        "Extension that modifies or enhances web pages",
		Complexity:         "Medium",
		UseCases:           []string{"Page modification", "Data extraction", "UI enhancement", "Automation"},
		Examples:           []string{"Ad blocker", "Page translator", "Social media enhancer"},
		RequiredFiles:      []string{"manifest.json", "content.js", "content.css"},
		DefaultPermissions: []string{"activeTab"},
		ManifestKeys:       []string{"content_scripts"},
		Keywords:           []string{"modify", "change", "page", "website", "highlight", "inject", "translate", "enhance", "replace"},
	},
	{
		ID:                 TypeBackground,
		Name:               "Background Extension",
		Description:        "Extension with background processing capabilities",
		Complexity:         "Advanced",
		UseCases:           []string{"Monitoring", "Background tasks", "Event handling", "Data sync"},
		Examples:           []string{"System monitor", "Auto-backup", "Notification manager"},
		RequiredFiles:      []string{"manifest.json", "background.js"},
		DefaultPermissions: []string{"storage"},
		ManifestKeys:       []string{"background"},
		Keywords:           []string{"background", "monitor", "watch", "sync", "track", "automatic", "periodically", "schedule"},
	},
	{
		ID:                 TypeDevTools,
		Name:               "DevTools Extension",
		Description:        "Extension that adds panels to Chrome Developer Tools",
		Complexity:         "Advanced",
		UseCases:           []string{"Developer utilities", "Debugging tools", "Performance analysis"},
		Examples:           []string{"React DevTools", "Performance profiler", "API inspector"},
		RequiredFiles:      []string{"manifest.json", "devtools.html", "devtools.js", "panel.html", "panel.js"},
		DefaultPermissions: []string{"storage"},
		ManifestKeys:       []string{"devtools_page"},
		Keywords:           []string{"developer", "debug", "devtools", "inspect", "profiler", "console", "network"},
	},
	{
		ID:                 TypeOptions,
		Name:               "Options Extension",
		Description:        "Extension with a dedicated options/settings page",
		Complexity:         "Simple",
		UseCases:           []string{"Configuration", "Preferences", "Advanced settings"},
		Examples:           []string{"Theme customizer", "Privacy settings", "Feature toggles"},
		RequiredFiles:      []string{"manifest.json", "options.html", "options.js", "options.css"},
		DefaultPermissions: []string{"storage"},
		ManifestKeys:       []string{"options_page"},
		Keywords:           []string{"settings", "preferences", "options", "configure", "customize", "toggle"},
	},
}

var permissions = []Permission{
	{
		ID:          "storage",
		Description: "Store and retrieve data using Chrome's storage API",
		RequiredFor: []string{"Settings", "User data", "Preferences"},
		Risk:        "low",
	},
	{
		ID:          "activeTab",
		Description: "Access the currently active tab",
		RequiredFor: []string{"Current page modification", "Tab information"},
		Risk:        "low",
	},
	{
		ID:          "tabs",
		Description: "Access information about all tabs",
		RequiredFor: []string{"Tab management", "Multi-tab operations"},
		Risk:        "medium",
	},
	{
		ID:          "scripting",
		Description: "Inject scripts into web pages",
		RequiredFor: []string{"Content script injection", "Page modification"},
		Risk:        "medium",
	},
	{
		ID:          "notifications",
		Description: "Display system notifications",
		RequiredFor: []string{"User alerts", "Status updates"},
		Risk:        "low",
	},
	{
		ID:          "alarms",
		Description: "Schedule code to run at specific times",
		RequiredFor: []string{"Timers", "Scheduled tasks", "Reminders"},
		Risk:        "low",
	},
	{
		ID:          "webRequest",
		Description: "Monitor and modify network requests",
		RequiredFor: []string{"Request blocking", "Request modification"},
		Risk:        "high",
	},
	{
		ID:          "cookies",
		Description: "Access and modify cookies",
		RequiredFor: []string{"Cookie management", "Session handling"},
		Risk:        "high",
	},
	{
		ID:          "history",
		Description: "Access browsing history",
		RequiredFor: []string{"History analysis", "Visited sites"},
		Risk:        "high",
	},
	{
		ID:          "bookmarks",
		Description: "Access and modify bookmarks",
		RequiredFor: []string{"Bookmark management", "Quick access"},
		Risk:        "medium",
	},
}

var patterns = []Pattern{
	{
		ID:          "productivity",
		Name:        "Productivity Tools",
		Examples:    []string{"Task Manager", "Note Taker", "Timer", "Calendar"},
		Permissions: []string{"storage", "activeTab", "notifications"},
		Keywords:    []string{"task", "note", "todo", "timer", "calendar", "productivity", "focus"},
	},
	{
		ID:          "social",
		Name:        "Social Media Tools",
		Examples:    []string{"Social Media Manager", "Share Helper", "Comment Analyzer"},
		Permissions: []string{"activeTab", "storage", "tabs"},
		Keywords:    []string{"social", "share", "twitter", "comment", "post", "feed"},
	},
	{
		ID:          "development",
		Name:        "Developer Tools",
		Examples:    []string{"Code Formatter", "API Tester", "CSS Inspector"},
		Permissions: []string{"activeTab", "storage"},
		Keywords:    []string{"code", "api", "css", "json", "format", "developer", "debug"},
	},
	{
		ID:          "accessibility",
		Name:        "Accessibility Tools",
		Examples:    []string{"Screen Reader Helper", "Font Resizer", "Color Adjuster"},
		Permissions: []string{"activeTab", "storage", "tabs"},
		Keywords:    []string{"font", "contrast", "color", "accessibility", "readable", "dyslexia"},
	},
	{
		ID:          "ecommerce",
		Name:        "E-commerce Tools",
		Examples:    []string{"Price Tracker", "Coupon Finder", "Product Comparer"},
		Permissions: []string{"activeTab", "storage", "webRequest"},
		Keywords:    []string{"price", "coupon", "product", "shop", "deal", "cart", "amazon"},
	},
}

// Archetypes returns the supported archetypes in stable display order.
func Archetypes() []Archetype {
	out := make([]Archetype, len(archetypes))
	copy(out, archetypes)
	return out
}

func ArchetypeByID(id string) (Archetype, bool) {
	for _, a := range archetypes {
		if a.ID == id {
			return a, true
		}
	}
	return Archetype{}, false
}

func ArchetypeIDs() []string {
	ids := make([]string, 0, len(archetypes))
	for _, a := range archetypes {
		ids = append(ids, a.ID)
	}
	return ids
}

func Permissions() []Permission {
	out := make([]Permission, len(permissions))
	copy(out, permissions)
	return out
}

func PermissionByID(id string) (Permission, bool) {
	for _, p := range permissions {
		if p.ID == id {
			return p, true
		}
	}
	return Permission{}, false
}

// UnknownPermissions returns, in input order, every entry that is not in
// the permission catalog. Duplicates are reported once.
func UnknownPermissions(ids []string) []string {
	var unknown []string
	seen := map[string]bool{}
	for _, id := range ids {
		if _, ok := PermissionByID(id); ok {
			continue
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		unknown = append(unknown, id)
	}
	return unknown
}

func Patterns() []Pattern {
	out := make([]Pattern, len(patterns))
	copy(out, patterns)
	return out
}
