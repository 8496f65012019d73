package middleware

import (
	"github.com/alarmdecoder/webconsole/internal/locale"
	"github.com/gin-gonic/gin"
	"golang.org/x/text/language"
)

const localeKey = "locale"

// Locale negotiates the response language from Accept-Language. A ?lang=
// query parameter takes precedence.
func Locale(fallback language.Tag) gin.HandlerFunc {
	return func(c *gin.Context) {
		var tag language.Tag
		if lang := c.Query("lang"); lang != "" {
			tag = locale.Match(lang, fallback)
		} else {
			tag = locale.Match(c.GetHeader("Accept-Language"), fallback)
		}
		c.Set(localeKey, tag)
		c.Next()
	}
}

// LocaleFromContext returns the negotiated language, English if none
func LocaleFromContext(c *gin.Context) language.Tag {
	if v, ok := c.Get(localeKey); ok {
		if tag, ok := v.(language.Tag); ok {
			return tag
		}
	}
	return language.English
}
