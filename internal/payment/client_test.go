package payment

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, "https://pay.example/start/", "merchant-1", 5*time.Second, zap.NewNop())
}

func TestRequestPayment_Accepted(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/pg/v4/payment/request.json" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}

		var payload map[string]any
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("decode request body: %v", err)
		}
		if payload["merchant_id"] != "merchant-1" {
			t.Errorf("merchant_id = %v, want merchant-1", payload["merchant_id"])
		}
		if payload["amount"] != float64(1500) {
			t.Errorf("amount = %v, want 1500", payload["amount"])
		}

		w.Write([]byte(`{"data":{"code":100,"message":"Success","authority":"A0001"},"errors":{}}`))
	})

	res, err := c.RequestPayment(context.Background(), 1500, "Great ebook (order 7)", "https://cb.example/payment_callback?order_id=7")
	if err != nil {
		t.Fatalf("RequestPayment failed: %v", err)
	}
	if res.Authority != "A0001" {
		t.Errorf("Authority = %q, want A0001", res.Authority)
	}
	if res.PayURL != "https://pay.example/start/A0001" {
		t.Errorf("PayURL = %q", res.PayURL)
	}
}

func TestRequestPayment_Rejected(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{},"errors":{"code":-9,"message":"The input params invalid"}}`))
	})

	_, err := c.RequestPayment(context.Background(), 1500, "desc", "https://cb.example")
	if err == nil {
		t.Fatal("expected error for rejected request")
	}

	var gwErr *GatewayError
	if !errors.As(err, &gwErr) {
		t.Fatalf("expected *GatewayError, got %T: %v", err, err)
	}
	if gwErr.Code != -9 || gwErr.Message != "The input params invalid" {
		t.Errorf("unexpected gateway error: %+v", gwErr)
	}
}

func TestVerifyPayment_Success(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/pg/v4/payment/verify.json" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.Write([]byte(`{"data":{"code":100,"ref_id":987654},"errors":{}}`))
	})

	res, err := c.VerifyPayment(context.Background(), 1500, "A0001")
	if err != nil {
		t.Fatalf("VerifyPayment failed: %v", err)
	}
	if !res.Verified() {
		t.Error("expected Verified() for code 100")
	}
	if res.RefID != 987654 {
		t.Errorf("RefID = %d, want 987654", res.RefID)
	}
	if len(res.RawPayload) == 0 {
		t.Error("RawPayload is empty")
	}
}

func TestVerifyPayment_AlreadyVerified(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{"code":101,"ref_id":987654},"errors":{}}`))
	})

	res, err := c.VerifyPayment(context.Background(), 1500, "A0001")
	if err != nil {
		t.Fatalf("VerifyPayment failed: %v", err)
	}
	if !res.Verified() {
		t.Error("expected Verified() for code 101")
	}
}

func TestVerifyPayment_Failure(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{},"errors":{"code":-51,"message":"Session is not valid"}}`))
	})

	res, err := c.VerifyPayment(context.Background(), 1500, "A0001")
	if err != nil {
		t.Fatalf("VerifyPayment failed: %v", err)
	}
	if res.Verified() {
		t.Error("Verified() true for failure code")
	}
	if res.Code != -51 {
		t.Errorf("Code = %d, want -51", res.Code)
	}
}
