package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/jrsteele09/go-phase-session/internal/utils"
	"golang.org/x/oauth2"
)

const exchangeFailed = "token exchange failed"

// exchangeResponse mirrors what clients of the proxy decode: either a token
// or an error.
type exchangeResponse struct {
	Token *string `json:"token,omitempty"`
	Error *string `json:"error,omitempty"`
}

func errorText(msg string) *string {
	return utils.Ptr(msg)
}

// ExchangeHandler serves GET /{code}/client_id/{clientID}. Provider rejections
// are reported as {"error": ...} with status 200, like GitHub's own token
// endpoint. Concurrent requests for the same code share one upstream call,
// which is not cancelled if the caller goes away.
func (s *Server) ExchangeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		code := r.PathValue("code")
		clientID := r.PathValue("clientID")

		if clientID != s.config.GetClientID() {
			s.metrics.ObserveProxyExchange("unknown_client")
			writeJSON(w, http.StatusBadRequest, exchangeResponse{Error: errorText("unknown client")})
			return
		}
		if code == "" {
			writeJSON(w, http.StatusBadRequest, exchangeResponse{Error: errorText("missing code")})
			return
		}

		result, err, shared := s.inflight.Do(code, func() (any, error) {
			ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), s.config.GetExchangeTimeout())
			defer cancel()
			return s.exchanger.Exchange(ctx, code)
		})
		if err != nil {
			var retrieveErr *oauth2.RetrieveError
			if errors.As(err, &retrieveErr) {
				s.metrics.ObserveProxyExchange("provider_error")
				s.logger.Warn().Str("event", "proxy_exchange_rejected").Str("error_code", retrieveErr.ErrorCode).Bool("shared", shared).Msg("provider rejected code")
				writeJSON(w, http.StatusOK, exchangeResponse{Error: errorText(providerMessage(retrieveErr))})
				return
			}
			s.metrics.ObserveProxyExchange("error")
			s.logger.Err(err).Str("event", "proxy_exchange_failed").Bool("shared", shared).Msg("token exchange failed")
			writeJSON(w, http.StatusBadGateway, exchangeResponse{Error: errorText(exchangeFailed)})
			return
		}

		tok := result.(*oauth2.Token)
		s.metrics.ObserveProxyExchange("success")
		s.logger.Info().Str("event", "proxy_exchange_succeeded").Bool("shared", shared).Msg("code exchanged")
		writeJSON(w, http.StatusOK, exchangeResponse{Token: utils.Ptr(tok.AccessToken)})
	}
}

func providerMessage(err *oauth2.RetrieveError) string {
	if err.ErrorCode != "" {
		return err.ErrorCode
	}
	return exchangeFailed
}
