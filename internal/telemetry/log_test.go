package telemetry

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger(t *testing.T) {
	tests := map[string]struct {
		level, format string
		wantErr       bool
		assert        func(t *testing.T, out string)
	}{
		"default should be json at info": {
			assert: func(t *testing.T, out string) {
				assert.Contains(t, out, `"msg":"hello"`)
				assert.NotContains(t, out, "hidden")
			},
		},

		"text format at debug": {
			level:  "debug",
			format: "text",
			assert: func(t *testing.T, out string) {
				assert.Contains(t, out, "msg=hello")
				assert.Contains(t, out, "msg=hidden")
			},
		},

		"unknown level": {
			level:   "loud",
			wantErr: true,
		},

		"unknown format": {
			format:  "xml",
			wantErr: true,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			var buf bytes.Buffer

			l, err := NewLogger(&buf, tc.level, tc.format)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)

			l.DebugContext(context.Background(), "hidden")
			l.InfoContext(context.Background(), "hello")
			tc.assert(t, buf.String())
		})
	}
}
