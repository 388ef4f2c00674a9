package record

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"smart-switch/internal/domain"
)

func TestEncode_MaxFields(t *testing.T) {
	s := domain.Switch{
		ID:      0xAB,
		Status:  true,
		TimerID: 0x12,
		Schedule: domain.Schedule{
			OnHour:    31,
			OnMinute:  63,
			OffHour:   31,
			OffMinute: 63,
		},
	}

	got := Encode(s)

	assert.Equal(t, Record{0xAB, 0x12, 0xFF, 0xFF, 0x7F}, got)
}

func TestEncode_KnownLayout(t *testing.T) {
	s := domain.Switch{
		ID:      50,
		TimerID: 3,
		Schedule: domain.Schedule{
			OnHour:    6,
			OnMinute:  30,
			OffHour:   22,
			OffMinute: 0,
		},
	}

	// onMinute 30 = 0b011110, offHour 22 = 0b10110
	assert.Equal(t, Record{50, 3, 0b10_00110_0, 0b0110_0111, 0b0_000000_1}, Encode(s))
}

func TestEncode_SingleFieldPositions(t *testing.T) {
	tests := []struct {
		name string
		s    domain.Switch
		want Record
	}{
		{"status", domain.Switch{Status: true}, Record{0, 0, 0x01, 0, 0}},
		{"on hour", domain.Switch{Schedule: domain.Schedule{OnHour: 31}}, Record{0, 0, 0x3E, 0, 0}},
		{"on minute", domain.Switch{Schedule: domain.Schedule{OnMinute: 63}}, Record{0, 0, 0xC0, 0x0F, 0}},
		{"off hour", domain.Switch{Schedule: domain.Schedule{OffHour: 31}}, Record{0, 0, 0, 0xF0, 0x01}},
		{"off minute", domain.Switch{Schedule: domain.Schedule{OffMinute: 63}}, Record{0, 0, 0, 0, 0x7E}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Encode(tt.s))
		})
	}
}

func TestEncode_TruncatesWideValues(t *testing.T) {
	got := Decode(Encode(domain.Switch{Schedule: domain.Schedule{OnHour: 33, OffMinute: 65}}))

	assert.Equal(t, uint8(1), got.OnHour)
	assert.Equal(t, uint8(1), got.OffMinute)
}

func TestDecode_IgnoresUnusedBit(t *testing.T) {
	got := Decode(Record{7, domain.NoTimer, 0, 0, 0x80})

	assert.Equal(t, domain.NewSwitch(7), got)
}

func TestRoundTrip_AllFieldCombinations(t *testing.T) {
	for onHour := 0; onHour <= MaxHour; onHour++ {
		for onMinute := 0; onMinute <= MaxMinute; onMinute++ {
			for offHour := 0; offHour <= MaxHour; offHour++ {
				for offMinute := 0; offMinute <= MaxMinute; offMinute++ {
					for _, status := range []bool{false, true} {
						want := domain.Switch{
							ID:      uint8(onHour + offMinute),
							Status:  status,
							TimerID: uint8(onMinute + offHour),
							Schedule: domain.Schedule{
								OnHour:    uint8(onHour),
								OnMinute:  uint8(onMinute),
								OffHour:   uint8(offHour),
								OffMinute: uint8(offMinute),
							},
						}
						if got := Decode(Encode(want)); got != want {
							t.Fatalf("round trip: got %+v, want %+v", got, want)
						}
					}
				}
			}
		}
	}
}

func TestOffsetAndSlots(t *testing.T) {
	assert.Equal(t, int64(1), Offset(0))
	assert.Equal(t, int64(6), Offset(1))
	assert.Equal(t, int64(496), Offset(99))

	assert.Equal(t, 0, Slots(0))
	assert.Equal(t, 0, Slots(5))
	assert.Equal(t, 1, Slots(6))
	assert.Equal(t, 204, Slots(1024))
}
