package adapter

import (
	"reflect"
	"testing"
)

func TestParamString(t *testing.T) {
	params := map[string]interface{}{
		"model": "projects",
		"empty": "",
		"num":   3,
	}

	tests := []struct {
		name     string
		key      string
		fallback string
		want     string
	}{
		{"present", "model", "records", "projects"},
		{"empty value falls back", "empty", "records", "records"},
		{"missing key falls back", "nope", "records", "records"},
		{"wrong type falls back", "num", "records", "records"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := paramString(params, tt.key, tt.fallback); got != tt.want {
				t.Errorf("paramString(%q) = %q, want %q", tt.key, got, tt.want)
			}
		})
	}
}

func TestParamInt(t *testing.T) {
	params := map[string]interface{}{
		"limit":   25,
		"decoded": float64(40),
		"text":    "10",
	}

	tests := []struct {
		name     string
		key      string
		fallback int
		want     int
	}{
		{"typed int", "limit", 5, 25},
		{"json decoded float", "decoded", 5, 40},
		{"string falls back", "text", 5, 5},
		{"missing falls back", "nope", 5, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := paramInt(params, tt.key, tt.fallback); got != tt.want {
				t.Errorf("paramInt(%q) = %d, want %d", tt.key, got, tt.want)
			}
		})
	}
}

func TestParamStringSlice(t *testing.T) {
	tests := []struct {
		name   string
		params map[string]interface{}
		want   []string
	}{
		{
			"typed slice",
			map[string]interface{}{"group_by": []string{"region", "status"}},
			[]string{"region", "status"},
		},
		{
			"json decoded slice drops non-strings",
			map[string]interface{}{"group_by": []interface{}{"region", 7, "status"}},
			[]string{"region", "status"},
		},
		{
			"missing",
			map[string]interface{}{},
			nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := paramStringSlice(tt.params, "group_by")
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("paramStringSlice() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParamStringMap(t *testing.T) {
	tests := []struct {
		name   string
		params map[string]interface{}
		want   map[string]string
	}{
		{
			"typed map",
			map[string]interface{}{"filters": map[string]string{"status": "active"}},
			map[string]string{"status": "active"},
		},
		{
			"json decoded map drops non-strings",
			map[string]interface{}{"filters": map[string]interface{}{"status": "active", "limit": 5}},
			map[string]string{"status": "active"},
		},
		{
			"missing",
			map[string]interface{}{},
			nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := paramStringMap(tt.params, "filters")
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("paramStringMap() = %v, want %v", got, tt.want)
			}
		})
	}
}
