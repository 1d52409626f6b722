package toggled

import (
	"runtime"
	"sync"

	"github.com/google/uuid"
)

const (
	sdkType    = "go-sdk"
	sdkVersion = "1.0.0"

	// Sent as Toggled-Client-Version on metrics requests
	clientIdentifier = "go-v1"
)

type sdkMetadata struct {
	SDKType         string `json:"sdkType"`
	SDKVersion      string `json:"sdkVersion"`
	LanguageVersion string `json:"languageVersion"`
	SessionID       string `json:"sessionID"`
}

var (
	processSessionID   string
	processSessionOnce sync.Once
)

// Identifies this process in logs and observability tags. Unrelated to the
// server-issued session id the client persists.
func ProcessSessionID() string {
	processSessionOnce.Do(func() {
		processSessionID = uuid.NewString()
	})
	return processSessionID
}

func getSDKMetadata() sdkMetadata {
	return sdkMetadata{
		SDKType:         sdkType,
		SDKVersion:      sdkVersion,
		LanguageVersion: runtime.Version()[2:],
		SessionID:       ProcessSessionID(),
	}
}
