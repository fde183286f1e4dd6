package backend

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"testing"

	"github.com/qyinm/yentui/types"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n0000000000000000")

func TestAnalyzeProductImageUpload(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
		}
		f, hdr, err := r.FormFile("product_image")
		if err != nil {
			t.Errorf("form file: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		defer f.Close()
		b, _ := io.ReadAll(f)
		if hdr.Filename != "can.png" || len(b) != len(pngHeader) {
			t.Errorf("filename=%q size=%d", hdr.Filename, len(b))
		}
		fmt.Fprint(w, `{"identified_product":"Cola","identified_company":"Coca-Cola","company_name":"The Coca-Cola Company","ticker_symbol":"KO","profile_details":{"business_summary":"Drinks"}}`)
	})

	ident, err := c.AnalyzeProductImage(context.Background(), pngHeader, "/tmp/can.png")
	if err != nil {
		t.Fatalf("analyze error: %v", err)
	}
	if ident.Product != "Cola" || ident.Company != "Coca-Cola" || ident.Profile == nil {
		t.Fatalf("unexpected identification %+v", ident)
	}
	if ident.Profile.TickerSymbol() != "KO" || ident.Profile.Detail(types.DetailBusinessSummary) != "Drinks" {
		t.Fatalf("unexpected profile %+v", ident.Profile)
	}
}

func TestAnalyzeProductImagePartial404(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"identified_product":"Mystery Soda","identified_company":"Unknown"}`)
	})
	ident, err := c.AnalyzeProductImage(context.Background(), pngHeader, "x.png")
	if ident.Product != "Mystery Soda" || ident.Profile != nil {
		t.Fatalf("unexpected partial identification %+v", ident)
	}
	msg, _ := types.ServerMessage(err)
	if msg != "Found: Mystery Soda, but couldn't identify the parent company." {
		t.Fatalf("message = %q", msg)
	}
}

func TestAnalyzeProductImageFailures(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantMsg string
	}{
		{"error field", 500, `{"error":"vision down"}`, "vision down"},
		{"bare failure", 503, `{}`, "Product analysis failed (Status: 503)"},
		{"unparseable", 500, `<html>`, "Analysis API Error (500): <html>"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			})
			_, err := c.AnalyzeProductImage(context.Background(), pngHeader, "x.png")
			if msg, _ := types.ServerMessage(err); msg != tt.wantMsg {
				t.Fatalf("message = %q, want %q", msg, tt.wantMsg)
			}
		})
	}
}

func TestAnalyzeProductImageEmpty(t *testing.T) {
	c := New("http://127.0.0.1:1")
	_, err := c.AnalyzeProductImage(context.Background(), nil, "")
	if err == nil || err.Error() != "image: No image selected or captured to analyze." {
		t.Fatalf("unexpected error %v", err)
	}
}

type countingBackend struct {
	types.Backend
	mu       sync.Mutex
	inFlight int
	peak     int
}

func (b *countingBackend) GetCompanyProfile(ctx context.Context, name string) (types.CompanyProfile, error) {
	b.mu.Lock()
	b.inFlight++
	if b.inFlight > b.peak {
		b.peak = b.inFlight
	}
	b.mu.Unlock()
	defer func() {
		b.mu.Lock()
		b.inFlight--
		b.mu.Unlock()
	}()
	if name == "Broken" {
		return types.CompanyProfile{}, &types.ServerError{Status: 500, Message: "nope"}
	}
	return types.NewCompanyProfile(name, "", "", nil, "", nil), nil
}

func TestFetchProfilesOrderAndLimit(t *testing.T) {
	b := &countingBackend{}
	names := []string{"Apple", "Broken", "Starbucks", "Nike"}
	results := FetchProfiles(context.Background(), b, names, 2)
	if len(results) != len(names) {
		t.Fatalf("got %d results", len(results))
	}
	for i, r := range results {
		if r.Company != names[i] {
			t.Fatalf("result %d company = %q", i, r.Company)
		}
	}
	if results[1].Err == nil || results[0].Err != nil {
		t.Fatalf("errors not isolated: %+v", results)
	}
	if b.peak > 2 {
		t.Fatalf("peak concurrency %d exceeds limit", b.peak)
	}
}
