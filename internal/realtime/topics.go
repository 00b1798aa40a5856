package realtime

import "github.com/google/uuid"

// Topic name helpers. One topic per (entity, subscriber-visible query).
func TopicProfile(userID uuid.UUID) string      { return "profile:" + userID.String() }
func TopicFriends(userID uuid.UUID) string      { return "friends:" + userID.String() }
func TopicRequests(userID uuid.UUID) string     { return "requests:" + userID.String() }
func TopicConversation(convID string) string    { return "conversation:" + convID }
func TopicConversations(userID uuid.UUID) string { return "conversations:" + userID.String() }
