package control

// Channel identifies which codec of the pair a per-codec control belongs to.
type Channel int

const (
	Left Channel = iota
	Right
)

// Channels lists both channels in pair order.
var Channels = [2]Channel{Left, Right}

func (c Channel) String() string {
	switch c {
	case Left:
		return "Left"
	case Right:
		return "Right"
	default:
		return "Unknown"
	}
}

// Kind is one of the stock controls a TAS571x registers per codec.
type Kind int

const (
	MasterVolume Kind = iota
	SpeakerVolume
	SpeakerSwitch
)

// StockKinds lists the per-codec controls superseded by the linked volume.
var StockKinds = [3]Kind{MasterVolume, SpeakerVolume, SpeakerSwitch}

func (k Kind) String() string {
	switch k {
	case MasterVolume:
		return "Master Volume"
	case SpeakerVolume:
		return "Speaker Volume"
	case SpeakerSwitch:
		return "Speaker Switch"
	default:
		return "Unknown"
	}
}

// Key is a typed lookup key for a per-codec control.
type Key struct {
	Channel Channel
	Kind    Kind
}

// Name returns the registry display name, e.g. "Left Master Volume".
func (k Key) Name() string {
	return k.Channel.String() + " " + k.Kind.String()
}
