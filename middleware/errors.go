package middleware

import (
	"fmt"
	"log"
	"net/http"
	"reflect"
	"runtime/debug"
	"strings"
	"sync"

	"github.com/AymenMB/wud-sub001/apperrors"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// ErrorHandler renders the last error attached with c.Error as the JSON
// body {message, field?, errors?, error?}. The raw error text is only
// exposed outside production.
func ErrorHandler(production bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		appErr := apperrors.From(c.Errors.Last().Err)
		status := appErr.Status()
		if status >= http.StatusInternalServerError {
			log.Printf("❌ %s %s: %v", c.Request.Method, c.Request.URL.Path, appErr)
		}

		body := gin.H{"message": appErr.Message}
		if appErr.Field != "" {
			body["field"] = appErr.Field
		}
		if len(appErr.Fields) > 0 {
			body["errors"] = appErr.Fields
		}
		if !production && appErr.Err != nil {
			body["error"] = appErr.Err.Error()
		}
		c.AbortWithStatusJSON(status, body)
	}
}

// Recovery turns a panic into a 500; the stack is only returned outside
// production.
func Recovery(production bool) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		stack := string(debug.Stack())
		log.Printf("❌ panic on %s %s: %v\n%s", c.Request.Method, c.Request.URL.Path, recovered, stack)

		body := gin.H{"message": "internal server error"}
		if !production {
			body["error"] = fmt.Sprint(recovered)
			body["stack"] = stack
		}
		c.AbortWithStatusJSON(http.StatusInternalServerError, body)
	})
}

var registerTagNames sync.Once

// RegisterJSONTagNames makes binding errors name fields by their json tag.
func RegisterJSONTagNames() {
	registerTagNames.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			if name == "" {
				return f.Name
			}
			return name
		})
	})
}
