package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"hangout/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"
)

// Action is what an inbound chat frame asks for.
type Action int

const (
	ActionSendMessage Action = iota
	ActionEditMessage
	ActionDeleteMessage
	ActionMarkRead
)

var actionNames = map[string]Action{
	"send_message":   ActionSendMessage,
	"edit_message":   ActionEditMessage,
	"delete_message": ActionDeleteMessage,
	"mark_read":      ActionMarkRead,
}

var ErrUnknownAction = errors.New("unknown action")

// ParseAction maps the frame's action field; an absent action means send_message.
func ParseAction(s string) (Action, error) {
	if s == "" {
		return ActionSendMessage, nil
	}
	a, ok := actionNames[s]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownAction, s)
	}
	return a, nil
}

func (a Action) String() string {
	for name, v := range actionNames {
		if v == a {
			return name
		}
	}
	return "action(" + strconv.Itoa(int(a)) + ")"
}

// flexID accepts a message id sent either as a number or a numeric string.
type flexID uint

func (f *flexID) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid message id %s", b)
	}
	*f = flexID(n)
	return nil
}

type inboundFrame struct {
	Action     string   `json:"action"`
	Message    string   `json:"message"`
	MessageID  flexID   `json:"message_id"`
	MessageIDs []flexID `json:"message_ids"`
}

type sendPayload struct {
	Message string `validate:"required"`
}

type editPayload struct {
	MessageID uint   `validate:"required"`
	Message   string `validate:"required"`
}

type deletePayload struct {
	MessageID uint `validate:"required"`
}

type markReadPayload struct {
	MessageIDs []uint `validate:"required,min=1"`
}

var validate = validator.New()

// Error texts keyed by the payload field that failed validation.
var fieldErrors = map[string]string{
	"sendPayload.Message":        "Message cannot be empty.",
	"editPayload.MessageID":      "Message ID is required.",
	"editPayload.Message":        "Message content cannot be empty.",
	"deletePayload.MessageID":    "Message ID is required.",
	"markReadPayload.MessageIDs": "Message IDs are required.",
}

func validationMessage(err error) string {
	var fields validator.ValidationErrors
	if errors.As(err, &fields) && len(fields) > 0 {
		if msg, ok := fieldErrors[fields[0].StructNamespace()]; ok {
			return msg
		}
	}
	return "Invalid message format."
}

// Events broadcast to the plan group.

type NewMessageEvent struct {
	Type           string `json:"type"`
	MessageID      uint   `json:"message_id"`
	User           string `json:"user"`
	UserID         uint   `json:"user_id"`
	Username       string `json:"username"`
	ProfilePicture string `json:"profile_picture"`
	Message        string `json:"message"`
	Timestamp      string `json:"timestamp"`
}

type MessageEditedEvent struct {
	Type      string `json:"type"`
	MessageID uint   `json:"message_id"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

type MessageDeletedEvent struct {
	Type      string `json:"type"`
	MessageID uint   `json:"message_id"`
}

type ReadReceiptEvent struct {
	Type       string                    `json:"type"`
	MessageID  uint                      `json:"message_id"`
	MessageIDs []uint                    `json:"message_ids"`
	User       string                    `json:"user"`
	UserID     uint                      `json:"user_id"`
	Username   string                    `json:"username"`
	Receipts   []service.ReadReceiptView `json:"receipts"`
}

// dispatch handles one inbound frame. Failures are answered in-band and never
// end the session.
func (s *chatSession) dispatch(ctx context.Context, raw []byte) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("Chat action panicked", "panic", r)
			s.replyError(fmt.Sprintf("Message send error: %v", r))
		}
	}()
	var in inboundFrame
	if err := json.Unmarshal(raw, &in); err != nil {
		s.replyError("Invalid message format.")
		return
	}
	action, err := ParseAction(in.Action)
	if err != nil {
		s.replyError("Unknown action.")
		return
	}
	if s.user.UserID == 0 {
		s.replyError("You must be logged in.")
		return
	}
	s.log.Debug("Chat action", "action", action.String(), "user_id", s.user.UserID)
	switch action {
	case ActionSendMessage:
		s.sendMessage(ctx, in)
	case ActionEditMessage:
		s.editMessage(ctx, in)
	case ActionDeleteMessage:
		s.deleteMessage(ctx, in)
	case ActionMarkRead:
		s.markRead(ctx, in)
	}
}

func (s *chatSession) sendMessage(ctx context.Context, in inboundFrame) {
	p := sendPayload{Message: strings.TrimSpace(in.Message)}
	if err := validate.Struct(p); err != nil {
		s.replyError(validationMessage(err))
		return
	}
	if s.throttle != nil && !s.throttle.Allow(s.client.ID) {
		s.replyError("You are sending messages too quickly.")
		return
	}
	msg, err := s.chat.Append(ctx, s.thread, s.user, p.Message)
	if err != nil {
		s.log.Error("Failed to save message", "error", err)
		s.replyError("Failed to save message.")
		return
	}
	s.publish(ctx, NewMessageEvent{
		Type:           "new_message",
		MessageID:      msg.ID,
		User:           s.user.DisplayName,
		UserID:         s.user.UserID,
		Username:       s.user.Username,
		ProfilePicture: s.user.ProfilePicture,
		Message:        msg.Body,
		Timestamp:      s.chat.Format(msg.CreatedAt),
	})
}

func (s *chatSession) editMessage(ctx context.Context, in inboundFrame) {
	p := editPayload{MessageID: uint(in.MessageID), Message: strings.TrimSpace(in.Message)}
	if err := validate.Struct(p); err != nil {
		s.replyError(validationMessage(err))
		return
	}
	ts, err := s.chat.Edit(ctx, s.thread.ID, p.MessageID, s.user.UserID, p.Message)
	switch {
	case errors.Is(err, service.ErrNotSender):
		s.replyError("You can only edit your own messages.")
	case errors.Is(err, service.ErrMessageNotFound):
		s.replyError("Message not found.")
	case err != nil:
		s.log.Error("Failed to edit message", "message_id", p.MessageID, "error", err)
		s.replyError("Failed to edit message.")
	default:
		s.publish(ctx, MessageEditedEvent{Type: "message_edited", MessageID: p.MessageID, Message: p.Message, Timestamp: ts})
	}
}

func (s *chatSession) deleteMessage(ctx context.Context, in inboundFrame) {
	p := deletePayload{MessageID: uint(in.MessageID)}
	if err := validate.Struct(p); err != nil {
		s.replyError(validationMessage(err))
		return
	}
	err := s.chat.Delete(ctx, s.thread.ID, p.MessageID, s.user.UserID)
	switch {
	case errors.Is(err, service.ErrNotSender):
		s.replyError("You can only delete your own messages.")
	case errors.Is(err, service.ErrMessageNotFound):
		s.replyError("Message not found.")
	case err != nil:
		s.log.Error("Failed to delete message", "message_id", p.MessageID, "error", err)
		s.replyError("Failed to delete message.")
	default:
		s.publish(ctx, MessageDeletedEvent{Type: "message_deleted", MessageID: p.MessageID})
	}
}

func (s *chatSession) markRead(ctx context.Context, in inboundFrame) {
	ids := lo.Map(in.MessageIDs, func(id flexID, _ int) uint { return uint(id) })
	if in.MessageID != 0 {
		ids = append(ids, uint(in.MessageID))
	}
	p := markReadPayload{MessageIDs: lo.Uniq(lo.Compact(ids))}
	if err := validate.Struct(p); err != nil {
		s.replyError(validationMessage(err))
		return
	}
	acked, receipts, err := s.chat.MarkRead(ctx, s.thread.ID, s.user.UserID, p.MessageIDs)
	if err != nil {
		s.log.Error("Failed to mark messages as read", "error", err)
		s.replyError("Failed to mark messages as read.")
		return
	}
	if len(acked) == 0 {
		return
	}
	s.publish(ctx, ReadReceiptEvent{
		Type:       "read_receipt",
		MessageID:  acked[0],
		MessageIDs: acked,
		User:       s.user.DisplayName,
		UserID:     s.user.UserID,
		Username:   s.user.Username,
		Receipts:   receipts,
	})
}
