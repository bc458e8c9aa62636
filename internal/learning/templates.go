package learning

// TemplateEntry is one (name, category) pair in a command template.
type TemplateEntry struct {
	Name     string `json:"name"`
	Category string `json:"category"`
}

// Built-in command templates. Loading a template reserves placeholders
// for every entry whose name is still free on the device.
var templates = map[string][]TemplateEntry{
	"tv-basic": {
		{Name: "power_on", Category: "power"},
		{Name: "power_off", Category: "power"},
		{Name: "volume_up", Category: "volume"},
		{Name: "volume_down", Category: "volume"},
		{Name: "mute", Category: "volume"},
	},
	"tv-full": {
		{Name: "power_on", Category: "power"},
		{Name: "power_off", Category: "power"},
		{Name: "volume_up", Category: "volume"},
		{Name: "volume_down", Category: "volume"},
		{Name: "mute", Category: "volume"},
		{Name: "input_hdmi1", Category: "input"},
		{Name: "input_hdmi2", Category: "input"},
		{Name: "input_hdmi3", Category: "input"},
		{Name: "up", Category: "navigation"},
		{Name: "down", Category: "navigation"},
		{Name: "left", Category: "navigation"},
		{Name: "right", Category: "navigation"},
		{Name: "ok", Category: "navigation"},
		{Name: "back", Category: "navigation"},
		{Name: "home", Category: "navigation"},
		{Name: "play", Category: "playback"},
		{Name: "pause", Category: "playback"},
		{Name: "stop", Category: "playback"},
	},
	"soundbar": {
		{Name: "power_on", Category: "power"},
		{Name: "power_off", Category: "power"},
		{Name: "volume_up", Category: "volume"},
		{Name: "volume_down", Category: "volume"},
		{Name: "mute", Category: "volume"},
		{Name: "input_hdmi1", Category: "input"},
	},
}

// Templates returns the names of all built-in templates.
func Templates() []string {
	names := make([]string, 0, len(templates))
	for name := range templates {
		names = append(names, name)
	}
	return names
}

// Template returns the entries of a named template.
func Template(name string) ([]TemplateEntry, bool) {
	entries, ok := templates[name]
	if !ok {
		return nil, false
	}
	out := make([]TemplateEntry, len(entries))
	copy(out, entries)
	return out, true
}
