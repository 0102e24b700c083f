package middleware

import (
	"github.com/gin-gonic/gin"

	"SafeTrail/pkg/i18n"
)

// Language extracts the client language from the lang query parameter,
// defaulting to English for unknown values.
func Language() gin.HandlerFunc {
	return func(c *gin.Context) {
		lang := c.DefaultQuery("lang", "en")
		known := false
		for _, l := range i18n.SupportedLanguages {
			if l == lang {
				known = true
				break
			}
		}
		if !known {
			lang = "en"
		}

		c.Set("lang", lang)
		c.Next()
	}
}
