package service

import "errors"

var (
	ErrPlanNotFound         = errors.New("plan not found")
	ErrMessageNotFound      = errors.New("message not found")
	ErrNotSender            = errors.New("only the sender may change this message")
	ErrEmptyMessage         = errors.New("message is empty")
	ErrNotificationNotFound = errors.New("notification not found")
	ErrUnknownPlanEvent     = errors.New("unknown plan event")
	ErrMissingUser          = errors.New("event requires a user")
)
