package driven

// ConfigStore is a flat key/value view over the settings file. Keys are
// dotted section paths such as "figures.merge_iou_thresh" or
// "embedding.provider".
//
// Typed getters return the zero value for a missing key or a value of the
// wrong type, so callers layer their own defaults on top.
type ConfigStore interface {
	Get(key string) (any, bool)
	GetString(key string) string
	GetInt(key string) int
	// GetFloat widens integer values.
	GetFloat(key string) float64
	GetBool(key string) bool
	GetStringSlice(key string) []string

	// Set updates a key and persists the whole file.
	Set(key string, value any) error
	Save() error
	// Load discards in-memory values and rereads storage.
	Load() error

	// Path names the backing file; in-memory stores return ":memory:".
	Path() string
}
