package domain

import (
	"fmt"
	"strings"
)

// NotificationType enumerates what triggered a notification.
type NotificationType string

const (
	NotificationPlanCreated   NotificationType = "PLAN_CREATED"
	NotificationPlanJoined    NotificationType = "PLAN_JOINED"
	NotificationPlanLeft      NotificationType = "PLAN_LEFT"
	NotificationPlanUpdated   NotificationType = "PLAN_UPDATED"
	NotificationPlanDeleted   NotificationType = "PLAN_DELETED"
	NotificationPlanCancelled NotificationType = "PLAN_CANCELLED"
	NotificationPlanReminder  NotificationType = "PLAN_REMINDER"
	NotificationNewMessage    NotificationType = "NEW_MESSAGE"
	NotificationMentioned     NotificationType = "MENTIONED"
	NotificationThreadCreated NotificationType = "THREAD_CREATED"
)

// Topic groups notification types for filtering and unread badges.
type Topic string

const (
	TopicPlan Topic = "PLAN"
	TopicChat Topic = "CHAT"
)

var notificationTypes = map[NotificationType]struct {
	topic   Topic
	display string
	title   string
}{
	NotificationPlanCreated:   {TopicPlan, "Plan Created", "Plan created"},
	NotificationPlanJoined:    {TopicPlan, "Plan Joined", "Plan joined"},
	NotificationPlanLeft:      {TopicPlan, "Plan Left", "Plan left"},
	NotificationPlanUpdated:   {TopicPlan, "Plan Updated", "Plan updated"},
	NotificationPlanDeleted:   {TopicPlan, "Plan Deleted", "Plan deleted"},
	NotificationPlanCancelled: {TopicPlan, "Plan Cancelled", "Plan cancelled"},
	NotificationPlanReminder:  {TopicPlan, "Plan Reminder", "Plan reminder"},
	NotificationNewMessage:    {TopicChat, "New Message", "New message"},
	NotificationMentioned:     {TopicChat, "Mentioned", "You were mentioned"},
	NotificationThreadCreated: {TopicChat, "Thread Created", "Chat created"},
}

func (t NotificationType) Valid() bool {
	_, ok := notificationTypes[t]
	return ok
}

// Topic is derived from the type; unknown types have no topic.
func (t NotificationType) Topic() Topic {
	return notificationTypes[t].topic
}

func (t NotificationType) Display() string {
	return notificationTypes[t].display
}

func (t NotificationType) DefaultTitle() string {
	return notificationTypes[t].title
}

func (t Topic) Display() string {
	switch t {
	case TopicPlan:
		return "Plan"
	case TopicChat:
		return "Chat"
	}
	return ""
}

// ParseTopic accepts topics case-insensitively ("chat", "CHAT").
func ParseTopic(s string) (Topic, error) {
	switch t := Topic(strings.ToUpper(strings.TrimSpace(s))); t {
	case TopicPlan, TopicChat:
		return t, nil
	}
	return "", fmt.Errorf("unknown topic %q", s)
}

const (
	ParticipantRoleLeader = "LEADER"
	ParticipantRoleMember = "MEMBER"
)

const (
	PlanEventCreated   = "created"
	PlanEventJoined    = "joined"
	PlanEventLeft      = "left"
	PlanEventUpdated   = "updated"
	PlanEventDeleted   = "deleted"
	PlanEventCancelled = "cancelled"
	PlanEventReminder  = "reminder"
)

// Broadcast group names.
func PlanGroup(planID uint) string { return fmt.Sprintf("plan_%d", planID) }
func UserGroup(userID uint) string { return fmt.Sprintf("user_%d", userID) }
