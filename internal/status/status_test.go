package status

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func datePtr(y int, m time.Month, d int) *time.Time {
	t := date(y, m, d)
	return &t
}

func TestDerive_VMWindow(t *testing.T) {
	start := datePtr(2024, time.January, 1)
	end := datePtr(2024, time.January, 31)

	tests := []struct {
		name  string
		today time.Time
		want  Status
	}{
		{"inside window", date(2024, time.January, 15), VMActive},
		{"first day", date(2024, time.January, 1), VMActive},
		{"last day", date(2024, time.January, 31), VMActive},
		{"past end", date(2024, time.February, 1), VMOverdueNotNotified},
		{"before start", date(2023, time.December, 24), VMActive},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := VirtualMachines.Derive(Derived(), start, end, tt.today)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDerive_StickyWinsOverDates(t *testing.T) {
	start := datePtr(2024, time.January, 1)
	end := datePtr(2024, time.January, 31)

	// A decommissioned VM stays decommissioned regardless of today.
	for _, today := range []time.Time{
		date(2024, time.January, 15),
		date(2024, time.February, 1),
		date(2020, time.June, 1),
	} {
		got := VirtualMachines.Derive(Manual(VMDecommissioned), start, end, today)
		assert.Equal(t, VMDecommissioned, got)
	}

	// Same for a notified overdue VM: derivation never downgrades it back
	// to not-notified.
	got := VirtualMachines.Derive(Manual(VMOverdueNotified), start, end, date(2024, time.January, 15))
	assert.Equal(t, VMOverdueNotified, got)
}

func TestDerive_MissingDatesFallBackToDefault(t *testing.T) {
	today := date(2024, time.June, 1)

	assert.Equal(t, VMActive, VirtualMachines.Derive(Derived(), nil, nil, today))
	assert.Equal(t, VMActive, VirtualMachines.Derive(Derived(), datePtr(2024, time.January, 1), nil, today))
	assert.Equal(t, VMActive, VirtualMachines.Derive(Derived(), nil, datePtr(2024, time.January, 31), today))

	assert.Equal(t, AssetAvailable, Assets.Derive(Derived(), nil, nil, today))
	assert.Equal(t, IAMActive, IAMGrants.Derive(Derived(), nil, nil, today))
}

func TestDerive_SingleDayWindow(t *testing.T) {
	day := datePtr(2024, time.March, 10)

	got := Assets.Derive(Derived(), day, day, date(2024, time.March, 10))
	assert.Equal(t, AssetDeployed, got)

	got = Assets.Derive(Derived(), day, day, date(2024, time.March, 11))
	assert.Equal(t, AssetOverdue, got)
}

func TestDerive_TimeComponentIgnored(t *testing.T) {
	start := datePtr(2024, time.January, 1)
	end := datePtr(2024, time.January, 31)

	// Late evening on the last day still counts as inside the window.
	lateEvening := time.Date(2024, time.January, 31, 23, 45, 0, 0, time.UTC)
	got := VirtualMachines.Derive(Derived(), start, end, lateEvening)
	assert.Equal(t, VMActive, got)
}

func TestDerive_Idempotent(t *testing.T) {
	start := datePtr(2024, time.January, 1)
	end := datePtr(2024, time.January, 31)
	today := date(2024, time.February, 1)

	first := IAMGrants.Derive(Derived(), start, end, today)
	second := IAMGrants.Derive(Derived(), start, end, today)
	assert.Equal(t, first, second)
	assert.Equal(t, IAMExpired, first)
}

func TestClassify(t *testing.T) {
	assert.True(t, VirtualMachines.Classify("Decommissioned").IsManual())
	assert.True(t, VirtualMachines.Classify("Overdue - Notified").IsManual())
	assert.False(t, VirtualMachines.Classify("Active").IsManual())
	// Derived statuses stored by earlier writes are recomputed, not trusted.
	assert.False(t, VirtualMachines.Classify("Overdue - Not Notified").IsManual())
	// Unknown strings are treated as derived, never an error.
	assert.False(t, VirtualMachines.Classify("bogus").IsManual())
	assert.False(t, VirtualMachines.Classify("").IsManual())

	assert.True(t, Assets.Classify("retired").IsManual())
	assert.True(t, IAMGrants.Classify("Revoked").IsManual())
}

func TestActionAvailability(t *testing.T) {
	assert.Equal(t, []Action{ActionCheckOut, ActionRetire}, AssetActions(AssetAvailable))
	assert.Equal(t, []Action{ActionCheckIn}, AssetActions(AssetDeployed))
	assert.Equal(t, []Action{ActionCheckIn}, AssetActions(AssetOverdue))
	assert.Nil(t, AssetActions(AssetRetired))

	assert.Equal(t, []Action{ActionMarkNotified, ActionDecommission}, VMActions(VMOverdueNotNotified))
	assert.Nil(t, VMActions(VMDecommissioned))

	assert.Equal(t, []Action{ActionReinstate, ActionRevoke}, IAMActions(IAMSuspended))
	assert.Nil(t, IAMActions(IAMRevoked))
}
