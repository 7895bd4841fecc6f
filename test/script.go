package test

// GameScript drives one table through a scripted sequence of intents.
type GameScript struct {
	Disabled    bool           `yaml:"disabled"`
	Description string         `yaml:"description"`
	TargetScore int            `yaml:"targetScore"`
	Seed        int64          `yaml:"seed"`
	Players     []ScriptPlayer `yaml:"players"`
	Deck        []string       `yaml:"deck"`
	Steps       []ScriptStep   `yaml:"steps"`
}

type ScriptPlayer struct {
	Name    string `yaml:"name"`
	Session string `yaml:"session"`
}

// ScriptStep is one intent. Player is a seated player's name, or "@turn" for
// the player to act.
type ScriptStep struct {
	Player  string   `yaml:"player"`
	Session string   `yaml:"session"`
	Action  string   `yaml:"action"`
	Name    string   `yaml:"name"`
	Bid     string   `yaml:"bid"`
	Card    string   `yaml:"card"`
	Deck    []string `yaml:"deck"`
	Repeat  int      `yaml:"repeat"`
	Reject  string   `yaml:"reject"`
	Verify  *Verify  `yaml:"verify"`
}

const (
	ActionJoin       = "join"
	ActionBid        = "bid"
	ActionPlay       = "play"
	ActionBelote     = "belote"
	ActionNextHand   = "nextHand"
	ActionNewGame    = "newGame"
	ActionDisconnect = "disconnect"
	ActionSettle     = "settle"
	ActionTimeout    = "timeout"
	ActionSetupDeck  = "setupDeck"
	ActionPlayOut    = "playOut"
	ActionVerify     = "verify"
)

const (
	TurnPlayer = "@turn"
	AutoCard   = "auto"
)

type Verify struct {
	Phase        string              `yaml:"phase"`
	Turn         string              `yaml:"turn"`
	Trump        string              `yaml:"trump"`
	Taker        string              `yaml:"taker"`
	BeloteHolder string              `yaml:"beloteHolder"`
	TrickWinner  string              `yaml:"trickWinner"`
	Hands        []int               `yaml:"hands"`
	Hand         map[string][]string `yaml:"hand"`
	Deck         *int                `yaml:"deck"`
	Trick        *int                `yaml:"trick"`
	Tricks       *int                `yaml:"tricks"`
	Rounds       *int                `yaml:"rounds"`
	Result       string              `yaml:"result"`
	Scores       map[string]int      `yaml:"scores"`
	Belote       map[string]string   `yaml:"belote"`
	Missed       map[string]bool     `yaml:"missed"`
	Connected    map[string]bool     `yaml:"connected"`
	Seats        []string            `yaml:"seats"`
	Winner       string              `yaml:"winner"`
}
