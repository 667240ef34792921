package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/prox/core"
	"github.com/trezcool/prox/core/hal"
	"github.com/trezcool/prox/core/project"
)

var (
	errUnauthorized     = echo.NewHTTPError(http.StatusUnauthorized, "user not authenticated")
	errHttpForbidden    = echo.NewHTTPError(http.StatusForbidden, "permission denied")
	errHttpNotFound     = echo.NewHTTPError(http.StatusNotFound, "not found")
	errSessionNotFound  = echo.NewHTTPError(http.StatusNotFound, "editor session not found")
	errEditorClosed     = echo.NewHTTPError(http.StatusConflict, "editor session closed")
	errEditorSubmitting = echo.NewHTTPError(http.StatusConflict, "submit already in progress")
	errDraftInUse       = echo.NewHTTPError(http.StatusConflict, "draft in use by an open editor session")
	errUpstream         = echo.NewHTTPError(http.StatusBadGateway, "project service unavailable")
	errRelationFetch    = echo.NewHTTPError(http.StatusBadGateway, "could not resolve project modules")
	errTagMaterialize   = echo.NewHTTPError(http.StatusBadGateway, "could not create tags")
	errPersist          = echo.NewHTTPError(http.StatusBadGateway, "could not save project")
	failureHTTPErrors   = map[project.FailureKind]*echo.HTTPError{
		project.RelationFetchFailure:      errRelationFetch,
		project.TagMaterializationFailure: errTagMaterialize,
		project.PersistFailure:            errPersist,
	}
)

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var code int
		var message interface{}

		switch origErr := errors.Cause(err).(type) {
		case *echo.HTTPError:
			if origErr == middleware.ErrJWTMissing {
				code = http.StatusUnauthorized
				message = origErr.Message
				break
			}
			if origErr.Internal != nil {
				if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
					origErr = herr
				}
			}
			code = origErr.Code
			message = origErr.Message
		case validator.ValidationErrors:
			fldErrs := make(map[string]string, len(origErr))
			for _, vErr := range origErr {
				fldErrs[vErr.Field()] = vErr.Translate(translator)
			}
			code = http.StatusBadRequest
			message = fldErrs
		case *core.ValidationError:
			if origErr.Fields != nil {
				fldErrs := make(map[string]string, len(origErr.Fields))
				for _, fErr := range origErr.Fields {
					fldErrs[fErr.Field] = fErr.Error
				}
				message = fldErrs
			} else {
				message = origErr.Error()
			}
			code = http.StatusBadRequest
		case *project.Failure:
			herr := failureHTTPErrors[origErr.Kind]
			if herr == nil {
				herr = errUpstream
			}
			code, message = herr.Code, herr.Message
			logger.Warn(origErr.Kind.String(), err, contextIdentity(ctx))
		case *hal.StatusError:
			code, message = errUpstream.Code, errUpstream.Message
			logger.Error("upstream error", err, contextIdentity(ctx))
		default:
			switch {
			case core.IsNotFound(err):
				code, message = errHttpNotFound.Code, errHttpNotFound.Message
			case errors.Cause(err) == project.ErrEditorClosed:
				code, message = errEditorClosed.Code, errEditorClosed.Message
			case errors.Cause(err) == project.ErrSubmitting:
				code, message = errEditorSubmitting.Code, errEditorSubmitting.Message
			default: // any other error is a server error
				code = http.StatusInternalServerError
				msg := http.StatusText(http.StatusInternalServerError)
				message = msg
				logger.Error(msg, errors.Wrap(err, msg), contextIdentity(ctx))

				// shutting down...
				if core.IsShutdown(err) {
					signalShutdown()
				}
			}
		}

		if ctx.Echo().Debug {
			message = err.Error()
		} else if m, ok := message.(string); ok {
			message = echo.Map{"error": m}
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, message)
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}

// contextIdentity is the authenticated identity, if any, for error reports.
func contextIdentity(ctx echo.Context) core.Identity {
	identity, _ := getContextIdentity(ctx)
	return identity
}
