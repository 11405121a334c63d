package reveal

// Kind classifies a reveal item. The kind determines the playback delay
// that follows the item: headers and separators are pacing marks with a
// short delay, events and details carry content and get the long one.
type Kind string

const (
	// KindHeader introduces a non-empty group of events.
	KindHeader Kind = "header"
	// KindSeparator marks the turn boundary within the playback.
	KindSeparator Kind = "separator"
	// KindEvent is one aggregate event line.
	KindEvent Kind = "event"
	// KindDetail is one expanded sub-event line.
	KindDetail Kind = "detail"
)

// Item is one entry of the reveal queue.
type Item struct {
	Kind Kind   `json:"kind"`
	Text string `json:"text"`
}

func header(text string) Item    { return Item{Kind: KindHeader, Text: text} }
func separator(text string) Item { return Item{Kind: KindSeparator, Text: text} }
func event(text string) Item     { return Item{Kind: KindEvent, Text: text} }
func detail(text string) Item    { return Item{Kind: KindDetail, Text: text} }
