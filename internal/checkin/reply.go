package checkin

import (
	"fmt"

	"github.com/boringdede/Snr-Attendance/internal/domain"
)

// Keyboard tells the transport which input controls to show with a reply.
type Keyboard int

const (
	KeepKeyboard Keyboard = iota
	MainMenu
	RemoveKeyboard
	ContactRequest
	LocationRequest
	Choices // inline buttons from Reply.Options
)

// Option is one inline button.
type Option struct {
	Label string
	Data  string
}

// Reply is what the user should see next. An empty Text means "send nothing".
type Reply struct {
	Text     string
	Keyboard Keyboard
	Options  []Option
}

// Empty reports whether nothing should be sent.
func (r Reply) Empty() bool { return r.Text == "" }

// Callback data prefixes of the check-in flow.
const (
	PrefixPlace  = "cs:place:"
	PrefixSlot   = "cs:slot:"
	PrefixAction = "act:"
)

// maxOptions bounds inline keyboards.
const maxOptions = 50

func placeOptions(keys []string) []Option {
	opts := make([]Option, 0, len(keys))
	for i, k := range keys {
		if i == maxOptions {
			break
		}
		opts = append(opts, Option{Label: k, Data: fmt.Sprintf("%s%d", PrefixPlace, i)})
	}
	return opts
}

func slotOptions(slots []domain.Slot) []Option {
	opts := make([]Option, 0, len(slots))
	for i, s := range slots {
		if i == maxOptions {
			break
		}
		opts = append(opts, Option{Label: s.Label(), Data: fmt.Sprintf("%s%d", PrefixSlot, i)})
	}
	return opts
}

func actionOptions() []Option {
	return []Option{
		{Label: domain.ActionIn.Label(), Data: PrefixAction + string(domain.ActionIn)},
		{Label: domain.ActionOut.Label(), Data: PrefixAction + string(domain.ActionOut)},
	}
}
