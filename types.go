package toggled

// Status of a toggle as served by the Toggled platform
type Status string

const (
	StatusOn  Status = "on"
	StatusOff Status = "off"
)

// ValueType describes how a toggle's value should be interpreted
type ValueType string

const (
	ValueTypeBoolean ValueType = "boolean"
	ValueTypeString  ValueType = "string"
)

// A single feature toggle. Value holds either a bool or a string depending on ValueType.
type Toggle struct {
	Name      string      `json:"toggleName"`
	Value     interface{} `json:"toggleValue"`
	ValueType ValueType   `json:"toggleValueType"`
	Status    Status      `json:"toggleStatus"`
}

// Context is forwarded to the Toggled API on every fetch. Well-known keys
// have constants below, but any key is accepted.
type Context map[string]string

const (
	ContextUserID        = "userId"
	ContextSessionID     = "sessionId"
	ContextRemoteAddress = "remoteAddress"
	ContextAppName       = "appName"
	ContextEnvironment   = "environment"
	ContextUserAgent     = "userAgent"
	ContextCountry       = "country"
	ContextBrowserName   = "browserName"
	ContextOSName        = "osName"
	ContextDeviceName    = "deviceName"
)

func (c Context) clone() Context {
	out := make(Context, len(c))
	for k, v := range c {
		if v == "" {
			continue
		}
		out[k] = v
	}
	return out
}

type togglesResponse struct {
	Items     []Toggle `json:"items"`
	SessionID string   `json:"session-id"`
}

func findToggle(toggles []Toggle, name string) (Toggle, bool) {
	for _, t := range toggles {
		if t.Name == name {
			return t, true
		}
	}
	return Toggle{}, false
}

func (t Toggle) enabled() bool {
	if t.Status != StatusOn {
		return false
	}
	if t.ValueType == ValueTypeBoolean {
		return truthy(t.Value)
	}
	return true
}

func truthy(v interface{}) bool {
	switch val := v.(type) {
	case nil:
		return false
	case bool:
		return val
	case string:
		return val != ""
	case float64:
		return val != 0
	case int:
		return val != 0
	default:
		return true
	}
}
