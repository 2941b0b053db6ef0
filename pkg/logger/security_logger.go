package logger

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"keyword-enricher/pkg/utils"
)

var (
	basicAuthPattern = regexp.MustCompile(`(?i)basic\s+[a-z0-9+/=]+`)
	secretPattern    = regexp.MustCompile(`(?i)(password|secret|token)[=:]\s*\S+`)
)

// SecurityLogger keeps API credentials and bulky keyword lists out of log output
type SecurityLogger struct {
	*Logger
}

// NewSecurityLogger wraps logger; a nil logger falls back to the global one
func NewSecurityLogger(l *Logger) *SecurityLogger {
	if l == nil {
		l = GetLogger()
	}
	return &SecurityLogger{Logger: l}
}

// MaskLogin keeps the mailbox domain for identification and hides the rest
func (sl *SecurityLogger) MaskLogin(login string) string {
	if login == "" {
		return ""
	}

	hash := utils.FingerprintShort(login)
	if at := strings.LastIndex(login, "@"); at >= 0 && at < len(login)-1 {
		return fmt.Sprintf("***@%s#%s", login[at+1:], hash)
	}
	return "login#" + hash
}

// MaskAPIEndpoint keeps the host and hides the path
func (sl *SecurityLogger) MaskAPIEndpoint(apiURL string) string {
	if apiURL == "" {
		return ""
	}

	parsedURL, err := url.Parse(apiURL)
	if err != nil || parsedURL.Host == "" {
		return "api-endpoint#" + utils.FingerprintShort(apiURL)
	}

	return fmt.Sprintf("%s/api#%s", parsedURL.Host, utils.FingerprintShort(apiURL))
}

// MaskKeywords reduces a keyword list to its size and a short sample
func (sl *SecurityLogger) MaskKeywords(keywords []string) interface{} {
	if len(keywords) == 0 {
		return "no_keywords"
	}

	if len(keywords) <= 3 {
		return fmt.Sprintf("keywords_count=%d", len(keywords))
	}

	return fmt.Sprintf("keywords_count=%d,sample=[%s,%s,...]",
		len(keywords), keywords[0], keywords[1])
}

// MaskSensitiveData masks credentials, endpoints and keyword lists in a field map
func (sl *SecurityLogger) MaskSensitiveData(data map[string]interface{}) map[string]interface{} {
	masked := make(map[string]interface{}, len(data))

	for key, value := range data {
		lowerKey := strings.ToLower(key)

		switch {
		case strings.Contains(lowerKey, "password") || strings.Contains(lowerKey, "secret"):
			masked[key] = "***"
		case strings.Contains(lowerKey, "login"):
			if str, ok := value.(string); ok {
				masked[key] = sl.MaskLogin(str)
			} else {
				masked[key] = value
			}
		case strings.Contains(lowerKey, "url") || strings.Contains(lowerKey, "endpoint"):
			if str, ok := value.(string); ok && isURL(str) {
				masked[key] = sl.MaskAPIEndpoint(str)
			} else {
				masked[key] = value
			}
		case strings.Contains(lowerKey, "keywords"):
			if keywords, ok := value.([]string); ok {
				masked[key] = sl.MaskKeywords(keywords)
			} else {
				masked[key] = value
			}
		default:
			masked[key] = value
		}
	}

	return masked
}

// isURL holds for absolute URLs; bare endpoint names are logged as is
func isURL(s string) bool {
	u, err := url.Parse(s)
	return err == nil && u.Scheme != "" && u.Host != ""
}

// MaskLogMessage strips authorization headers and inline secrets from free text
func (sl *SecurityLogger) MaskLogMessage(message string) string {
	masked := basicAuthPattern.ReplaceAllString(message, "Basic ***")
	return secretPattern.ReplaceAllString(masked, "${1}=***")
}

// SafeInfo logs info with automatic sensitive data masking
func (sl *SecurityLogger) SafeInfo(msg string, fields map[string]interface{}) {
	if fields != nil {
		sl.Logger.WithFields(sl.MaskSensitiveData(fields)).Info(sl.MaskLogMessage(msg))
	} else {
		sl.Logger.Info(sl.MaskLogMessage(msg))
	}
}

// SafeWarn logs warning with automatic sensitive data masking
func (sl *SecurityLogger) SafeWarn(msg string, fields map[string]interface{}) {
	if fields != nil {
		sl.Logger.WithFields(sl.MaskSensitiveData(fields)).Warn(sl.MaskLogMessage(msg))
	} else {
		sl.Logger.Warn(sl.MaskLogMessage(msg))
	}
}

// SafeDebug logs debug with automatic sensitive data masking
func (sl *SecurityLogger) SafeDebug(msg string, fields map[string]interface{}) {
	if fields != nil {
		sl.Logger.WithFields(sl.MaskSensitiveData(fields)).Debug(sl.MaskLogMessage(msg))
	} else {
		sl.Logger.Debug(sl.MaskLogMessage(msg))
	}
}

// SafeError logs error with automatic sensitive data masking
func (sl *SecurityLogger) SafeError(msg string, err error, fields map[string]interface{}) {
	maskedFields := map[string]interface{}{}
	if err != nil {
		maskedFields["error"] = sl.MaskLogMessage(err.Error())
	}

	for k, v := range sl.MaskSensitiveData(fields) {
		maskedFields[k] = v
	}

	sl.Logger.WithFields(maskedFields).Error(sl.MaskLogMessage(msg))
}
