package callbacks

import (
	"errors"

	"github.com/m3rciful/kilobot/core/telegram/action"
	"github.com/m3rciful/kilobot/core/telegram/metrics"

	tele "gopkg.in/telebot.v4"
)

// ErrNoCallback is returned when the update carries no callback query.
var ErrNoCallback = errors.New("callbacks: update has no callback")

// Decode parses the callback data of c with schema. Failures are counted
// per schema and returned unchanged.
func Decode(c tele.Context, schema *action.Schema) (action.Action, error) {
	if c.Callback() == nil {
		return action.Action{}, ErrNoCallback
	}
	a, err := schema.Deserialize(Token(c))
	if err != nil {
		metrics.ObserveDecodeError(schema.Name())
		return action.Action{}, err
	}
	return a, nil
}
