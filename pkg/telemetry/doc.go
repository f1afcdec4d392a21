// Package telemetry defines the payload layouts carried inside stream frames
// and the serializers for each stream kind. Every multi-byte value is
// little-endian; matrices are 16 float32 in row-major order with the
// translation in the last row.
package telemetry
