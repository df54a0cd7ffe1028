package vision

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"

	pkgerrors "github.com/yardtrackpro/yardtrack-backend/pkg/errors"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     http.Header{},
	}
}

func TestDescribeImageSendsImageAndPrompt(t *testing.T) {
	var captured messageRequest
	var headers http.Header
	var url string

	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		url = req.URL.String()
		headers = req.Header.Clone()
		if err := json.NewDecoder(req.Body).Decode(&captured); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		return jsonResponse(http.StatusOK, `{"content":[{"type":"text","text":"{\"vendor\":\"Acme\"}"}]}`), nil
	})

	client, err := NewClient("key-1",
		WithBaseURL("http://vision.test"),
		WithHTTPClient(&http.Client{Transport: rt}),
		WithModel("test-model"),
		WithMaxTokens(256),
	)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	text, err := client.DescribeImage(context.Background(), ImageRequest{
		MediaType: "image/png",
		Data:      []byte{0x89, 0x50},
		Prompt:    "read the ticket",
	})
	if err != nil {
		t.Fatalf("describe image: %v", err)
	}
	if text != `{"vendor":"Acme"}` {
		t.Fatalf("unexpected text %q", text)
	}
	if url != "http://vision.test/v1/messages" {
		t.Fatalf("unexpected url %q", url)
	}
	if headers.Get("x-api-key") != "key-1" || headers.Get("anthropic-version") != apiVersion {
		t.Fatalf("missing auth headers: %v", headers)
	}
	if captured.Model != "test-model" || captured.MaxTokens != 256 {
		t.Fatalf("unexpected request options %+v", captured)
	}
	blocks := captured.Messages[0].Content
	if len(blocks) != 2 || blocks[0].Source == nil || blocks[0].Source.MediaType != "image/png" {
		t.Fatalf("expected image block first, got %+v", blocks)
	}
	if blocks[0].Source.Data != "iVA=" {
		t.Fatalf("expected base64 image data, got %q", blocks[0].Source.Data)
	}
	if blocks[1].Text != "read the ticket" {
		t.Fatalf("expected prompt block, got %+v", blocks[1])
	}
}

func TestDescribeImageNon200(t *testing.T) {
	rt := roundTripFunc(func(*http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusTooManyRequests, `{"error":{"type":"rate_limit_error"}}`), nil
	})
	client, _ := NewClient("key", WithHTTPClient(&http.Client{Transport: rt}))

	_, err := client.DescribeImage(context.Background(), ImageRequest{Data: []byte("x")})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeExtractionFailed {
		t.Fatalf("expected extraction failed error, got %v", err)
	}
	if !strings.Contains(typed.Details()["details"].(string), "rate_limit_error") {
		t.Fatalf("expected upstream body in details, got %v", typed.Details())
	}
}

func TestDescribeImageRequiresData(t *testing.T) {
	client, _ := NewClient("key")
	_, err := client.DescribeImage(context.Background(), ImageRequest{})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestNewClientRequiresKey(t *testing.T) {
	if _, err := NewClient("  "); err == nil {
		t.Fatal("expected missing key error")
	}
}
