package foxglove

import "sync"

// sdkLanguage defaults to this build-time constant and tags the
// serverInfo message sent to every WebSocket client on handshake.
const defaultSDKLanguage = "go"

var (
	sdkLanguageOnce sync.Once
	sdkLanguage     = defaultSDKLanguage
)

// SetSDKLanguage overrides the language tag reported in outbound
// server-info messages. It has effect only on the first call; subsequent
// calls are no-ops, since it configures one-shot process-wide setup.
func SetSDKLanguage(language string) {
	sdkLanguageOnce.Do(func() {
		sdkLanguage = language
	})
}

// SDKLanguage returns the current language tag.
func SDKLanguage() string { return sdkLanguage }
