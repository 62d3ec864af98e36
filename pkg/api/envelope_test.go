package api

import (
	"errors"
	"testing"
)

func TestDecodeEnvelope(t *testing.T) {
	t.Run("success envelope with token and user", func(t *testing.T) {
		body := `{"error":false,"code":200,"message":"ok","data":{"token":"tok123","user":{"id":"u1","role":"admin"}}}`
		env, err := DecodeEnvelope([]byte(body))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if env.Error {
			t.Fatal("expected error=false")
		}

		p, err := env.Payload()
		if err != nil {
			t.Fatalf("unexpected payload error: %v", err)
		}
		if p.Token != "tok123" {
			t.Errorf("token = %q, want tok123", p.Token)
		}
		if p.User == nil || p.User.Role != "admin" {
			t.Errorf("user = %+v, want admin role", p.User)
		}
	})

	t.Run("error envelope", func(t *testing.T) {
		env, err := DecodeEnvelope([]byte(`{"error":true,"code":401,"message":"invalid token"}`))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !env.Error || env.Code != 401 || env.Message != "invalid token" {
			t.Errorf("got %+v", env)
		}
	})

	t.Run("non-JSON body", func(t *testing.T) {
		_, err := DecodeEnvelope([]byte("<html>bad gateway</html>"))
		if !errors.Is(err, ErrBadEnvelope) {
			t.Fatalf("expected ErrBadEnvelope, got %v", err)
		}
	})

	t.Run("missing data yields empty payload", func(t *testing.T) {
		env, err := DecodeEnvelope([]byte(`{"error":false,"code":201,"message":"created"}`))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		p, err := env.Payload()
		if err != nil {
			t.Fatalf("unexpected payload error: %v", err)
		}
		if p.Token != "" || p.User != nil {
			t.Errorf("expected empty payload, got %+v", p)
		}
	})
}

func TestEnvelopeResult(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		wantOk      bool
		wantCode    int
		wantMessage string
		wantToken   string
	}{
		{
			name:      "ok with payload",
			body:      `{"error":false,"code":200,"message":"ok","data":{"token":"t"}}`,
			wantOk:    true,
			wantToken: "t",
		},
		{
			name:        "err carries code and message",
			body:        `{"error":true,"code":403,"message":"blocked"}`,
			wantCode:    403,
			wantMessage: "blocked",
		},
		{
			name:     "ok with malformed data collapses to err",
			body:     `{"error":false,"code":200,"message":"ok","data":[1,2]}`,
			wantCode: 500,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env, err := DecodeEnvelope([]byte(tt.body))
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			res := env.Result()

			if res.IsOk() != tt.wantOk {
				t.Fatalf("IsOk = %v, want %v", res.IsOk(), tt.wantOk)
			}
			if tt.wantOk {
				p, _ := res.Ok()
				if p.Token != tt.wantToken {
					t.Errorf("token = %q, want %q", p.Token, tt.wantToken)
				}
				return
			}

			code, message, failed := res.Err()
			if !failed {
				t.Fatal("expected failure")
			}
			if code != tt.wantCode {
				t.Errorf("code = %d, want %d", code, tt.wantCode)
			}
			if tt.wantMessage != "" && message != tt.wantMessage {
				t.Errorf("message = %q, want %q", message, tt.wantMessage)
			}
		})
	}
}
