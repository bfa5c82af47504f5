package indicator

import (
	"os"
	"strings"
)

type locale string

const localeEnglish locale = "en"

// messages are the notification summaries for each session phase.
type messages struct {
	recording string
	analyzing string
	errorText string
}

var catalog = map[locale]messages{
	localeEnglish: {
		recording: "Recording…",
		analyzing: "Analyzing…",
		errorText: "Rehearsal error",
	},
}

func indicatorMessagesFromEnv() messages {
	return indicatorMessages(resolveLocale(os.Getenv("LC_ALL"), os.Getenv("LC_MESSAGES"), os.Getenv("LANG")))
}

// resolveLocale picks the first set variable in POSIX precedence order and
// falls back to English when no catalog entry matches its language.
func resolveLocale(vars ...string) locale {
	for _, raw := range vars {
		raw = strings.ToLower(strings.TrimSpace(raw))
		if raw == "" {
			continue
		}
		lang, _, _ := strings.Cut(raw, "_")
		lang, _, _ = strings.Cut(lang, ".")
		if _, ok := catalog[locale(lang)]; ok {
			return locale(lang)
		}
		break
	}
	return localeEnglish
}

func indicatorMessages(tag locale) messages {
	if msg, ok := catalog[tag]; ok {
		return msg
	}
	return catalog[localeEnglish]
}
