// Package activity builds the presentation payload for SET_ACTIVITY.
package activity

// Activity is the presence shown on the user's profile. Zero-valued optional
// fields are omitted from the wire form.
type Activity struct {
	State      string      `json:"state,omitempty"`
	Details    string      `json:"details,omitempty"`
	Timestamps *Timestamps `json:"timestamps,omitempty"`
	Assets     Assets      `json:"assets"`
	Buttons    []Button    `json:"buttons,omitempty"`
}

// Timestamps are unix seconds.
type Timestamps struct {
	Start int64 `json:"start"`
	End   int64 `json:"end"`
}

// Assets reference images uploaded for the application.
type Assets struct {
	LargeImage string `json:"large_image,omitempty"`
	LargeText  string `json:"large_text,omitempty"`
	SmallImage string `json:"small_image,omitempty"`
	SmallText  string `json:"small_text,omitempty"`
}

// Button is a link rendered under the activity.
type Button struct {
	Label string `json:"label"`
	URL   string `json:"url"`
}

// New returns an empty activity.
func New() *Activity {
	return &Activity{}
}

func (a *Activity) SetState(state string) *Activity {
	a.State = state
	return a
}

func (a *Activity) SetDetails(details string) *Activity {
	a.Details = details
	return a
}

func (a *Activity) SetTimestamps(start, end int64) *Activity {
	a.Timestamps = &Timestamps{Start: start, End: end}
	return a
}

func (a *Activity) SetLargeImage(key string) *Activity {
	a.Assets.LargeImage = key
	return a
}

func (a *Activity) SetLargeText(text string) *Activity {
	a.Assets.LargeText = text
	return a
}

func (a *Activity) SetSmallImage(key string) *Activity {
	a.Assets.SmallImage = key
	return a
}

func (a *Activity) SetSmallText(text string) *Activity {
	a.Assets.SmallText = text
	return a
}

// AddButton appends a link button.
func (a *Activity) AddButton(label, url string) *Activity {
	a.Buttons = append(a.Buttons, Button{Label: label, URL: url})
	return a
}

// Clone returns a deep copy of a.
func (a *Activity) Clone() *Activity {
	if a == nil {
		return nil
	}
	c := *a
	if a.Timestamps != nil {
		ts := *a.Timestamps
		c.Timestamps = &ts
	}
	c.Buttons = append([]Button(nil), a.Buttons...)
	return &c
}
