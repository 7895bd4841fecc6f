package nats

import (
	"fmt"
)

func GetIntentSubject(tableCode string) string {
	return fmt.Sprintf("belote.%s.intent", tableCode)
}

func GetPresenceSubject(tableCode string) string {
	return fmt.Sprintf("belote.%s.presence", tableCode)
}

func GetDriverSubject(tableCode string) string {
	return fmt.Sprintf("belote.%s.driver", tableCode)
}

func GetStateSubject(tableCode string) string {
	return fmt.Sprintf("belote.%s.state", tableCode)
}

func GetSessionSubject(tableCode string, sessionID string) string {
	return fmt.Sprintf("belote.%s.session.%s", tableCode, sessionID)
}
