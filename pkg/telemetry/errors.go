package telemetry

import "fmt"

// PayloadError reports a payload whose length does not match its layout.
type PayloadError struct {
    Kind string
    Got  int
    Want int
}

func (e *PayloadError) Error() string {
    return fmt.Sprintf("telemetry: %s payload is %d bytes, want %d", e.Kind, e.Got, e.Want)
}
