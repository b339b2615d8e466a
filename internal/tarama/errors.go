package tarama

// Kind separates malformed input from input that is well formed but not
// allowed by the rules of the game.
type Kind int

const (
	KindValidation Kind = iota
	KindRuleViolation
)

type Error struct {
	Kind    Kind
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Code + ": " + e.Message
}

// Is matches on Code so wrapped or re-created errors still compare equal.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

var (
	ErrOutOfBounds    = &Error{KindValidation, "OUT_OF_BOUNDS", "Point is outside the board"}
	ErrDuplicatePoint = &Error{KindValidation, "DUPLICATE_POINT", "Selected points must be distinct"}
	ErrInvalidPlayer  = &Error{KindValidation, "INVALID_PLAYER", "Player index must be 0 or 1"}

	ErrCellOccupied = &Error{KindRuleViolation, "CELL_OCCUPIED", "This cell is already taken"}
	ErrCellDisabled = &Error{KindRuleViolation, "CELL_DISABLED", "This cell has been captured"}

	ErrTooFewPoints       = &Error{KindRuleViolation, "ENCLOSURE_TOO_SMALL", "Select at least 4 points"}
	ErrNotConnected       = &Error{KindRuleViolation, "ENCLOSURE_NOT_CONNECTED", "Selected points must be connected to each other"}
	ErrNotClosed          = &Error{KindRuleViolation, "ENCLOSURE_NOT_CLOSED", "Selected points must form a closed shape"}
	ErrNoOpponentEnclosed = &Error{KindRuleViolation, "NO_OPPONENT_ENCLOSED", "no opponent stones enclosed"}
)
