package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNotificationType_Topic(t *testing.T) {
	chat := []NotificationType{NotificationNewMessage, NotificationMentioned, NotificationThreadCreated}
	for _, nt := range chat {
		require.Equal(t, TopicChat, nt.Topic(), nt)
	}
	plan := []NotificationType{
		NotificationPlanCreated, NotificationPlanJoined, NotificationPlanLeft, NotificationPlanUpdated,
		NotificationPlanDeleted, NotificationPlanCancelled, NotificationPlanReminder,
	}
	for _, nt := range plan {
		require.Equal(t, TopicPlan, nt.Topic(), nt)
		require.NotEmpty(t, nt.DefaultTitle())
	}
	require.False(t, NotificationType("NOPE").Valid())
	require.Equal(t, Topic(""), NotificationType("NOPE").Topic())
}

func TestParseTopic(t *testing.T) {
	got, err := ParseTopic("chat")
	require.NoError(t, err)
	require.Equal(t, TopicChat, got)

	got, err = ParseTopic("PLAN")
	require.NoError(t, err)
	require.Equal(t, TopicPlan, got)

	_, err = ParseTopic("weather")
	require.Error(t, err)
}

func TestGroupNames(t *testing.T) {
	require.Equal(t, "plan_42", PlanGroup(42))
	require.Equal(t, "user_7", UserGroup(7))
}
