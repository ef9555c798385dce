package handler_test

import (
	"testing"

	"hangout/internal/handler"

	"github.com/stretchr/testify/require"
)

func TestParseAction(t *testing.T) {
	req := require.New(t)

	for _, name := range []string{"send_message", "edit_message", "delete_message", "mark_read"} {
		a, err := handler.ParseAction(name)
		req.NoError(err)
		req.Equal(name, a.String())
	}

	a, err := handler.ParseAction("")
	req.NoError(err)
	req.Equal(handler.ActionSendMessage, a)

	_, err = handler.ParseAction("typing")
	req.ErrorIs(err, handler.ErrUnknownAction)
	req.Equal("action(99)", handler.Action(99).String())
}
