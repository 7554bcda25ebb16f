package services

import (
	"golang.org/x/text/feature/plural"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

// DefaultLocale is used when a caller gives no locale or one we do not translate
const DefaultLocale = "en"

// Message keys; the English text doubles as the key
const (
	msgSeconds         = "%d seconds"
	msgMinutes         = "%d minutes"
	msgHours           = "%d hours"
	msgTooManyRequests = "Too many requests. Please wait %s."
	msgTooManyAttempts = "Too many failed login attempts. Please wait %s."
	msgAccountLocked   = "Account temporarily locked. Try again in %s."
)

var (
	supportedLocales = []language.Tag{language.English, language.Arabic}
	localeMatcher    = language.NewMatcher(supportedLocales)
	lockoutCatalog   = newLockoutCatalog()
)

func newLockoutCatalog() catalog.Catalog {
	b := catalog.NewBuilder(catalog.Fallback(language.English))

	set := func(tag language.Tag, key string, msg catalog.Message) {
		if err := b.Set(tag, key, msg); err != nil {
			panic(err)
		}
	}

	set(language.English, msgSeconds, plural.Selectf(1, "%d", "one", "%d second", "other", "%d seconds"))
	set(language.English, msgMinutes, plural.Selectf(1, "%d", "one", "%d minute", "other", "%d minutes"))
	set(language.English, msgHours, plural.Selectf(1, "%d", "one", "%d hour", "other", "%d hours"))
	set(language.English, msgTooManyRequests, catalog.String(msgTooManyRequests))
	set(language.English, msgTooManyAttempts, catalog.String(msgTooManyAttempts))
	set(language.English, msgAccountLocked, catalog.String(msgAccountLocked))

	set(language.Arabic, msgSeconds, plural.Selectf(1, "%d",
		"=1", "ثانية واحدة",
		"=2", "ثانيتان",
		"few", "%d ثوانٍ",
		"other", "%d ثانية"))
	set(language.Arabic, msgMinutes, plural.Selectf(1, "%d",
		"=1", "دقيقة واحدة",
		"=2", "دقيقتان",
		"few", "%d دقائق",
		"other", "%d دقيقة"))
	set(language.Arabic, msgHours, plural.Selectf(1, "%d",
		"=1", "ساعة واحدة",
		"=2", "ساعتان",
		"few", "%d ساعات",
		"other", "%d ساعة"))
	set(language.Arabic, msgTooManyRequests, catalog.String("طلبات كثيرة جداً. يرجى الانتظار %s."))
	set(language.Arabic, msgTooManyAttempts, catalog.String("محاولات تسجيل دخول فاشلة كثيرة. يرجى الانتظار %s."))
	set(language.Arabic, msgAccountLocked, catalog.String("الحساب مقفل مؤقتاً. حاول مرة أخرى بعد %s."))

	return b
}

// printerFor resolves a BCP 47 locale string to the closest translated language
func printerFor(locale string) *message.Printer {
	tag := language.English
	if locale != "" {
		if parsed, err := language.Parse(locale); err == nil {
			_, idx, conf := localeMatcher.Match(parsed)
			if conf != language.No {
				tag = supportedLocales[idx]
			}
		}
	}
	return message.NewPrinter(tag, message.Catalog(lockoutCatalog))
}

// FormatLockoutTime renders a wait in the largest sensible unit, rounding up:
// under a minute in seconds, under an hour in minutes, otherwise in hours.
func FormatLockoutTime(seconds int, locale string) string {
	return formatWith(printerFor(locale), seconds)
}

func formatWith(p *message.Printer, seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	if seconds < 60 {
		return p.Sprintf(msgSeconds, seconds)
	}

	minutes := (seconds + 59) / 60
	if minutes < 60 {
		return p.Sprintf(msgMinutes, minutes)
	}

	hours := (minutes + 59) / 60
	return p.Sprintf(msgHours, hours)
}

// TooManyRequestsMessage is the default text shown for an upstream 429
func TooManyRequestsMessage(seconds int, locale string) string {
	p := printerFor(locale)
	return p.Sprintf(msgTooManyRequests, formatWith(p, seconds))
}

// TooManyAttemptsMessage is the text shown when the local governor refuses an attempt
func TooManyAttemptsMessage(seconds int, locale string) string {
	p := printerFor(locale)
	return p.Sprintf(msgTooManyAttempts, formatWith(p, seconds))
}

// AccountLockedMessage is the default text shown for an upstream 423
func AccountLockedMessage(seconds int, locale string) string {
	p := printerFor(locale)
	return p.Sprintf(msgAccountLocked, formatWith(p, seconds))
}
