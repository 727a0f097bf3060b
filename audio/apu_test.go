package audio

import "testing"

func TestAPURegisterRoundTrip(t *testing.T) {
	a := New()
	a.WriteRegister(0xFF26, 0x80) // master enable
	a.WriteRegister(0xFF11, 0x80) // duty 2, length 0
	a.WriteRegister(0xFF12, 0xF3) // volume 15, direction down, pace 3

	if got := a.ReadRegister(0xFF11); got != 0x80 {
		t.Errorf("ReadRegister(NR11) = 0x%02X; want 0x80", got)
	}
	if got := a.ReadRegister(0xFF12); got != 0xF3 {
		t.Errorf("ReadRegister(NR12) = 0x%02X; want 0xF3", got)
	}
}

func TestAPUWritesIgnoredWhilePoweredOff(t *testing.T) {
	a := New()
	a.WriteRegister(0xFF11, 0xFF)

	if got := a.ReadRegister(0xFF11); got != 0x00 {
		t.Errorf("ReadRegister(NR11) = 0x%02X; want 0x00 (write ignored while off)", got)
	}
}

func TestAPUPowerOffClearsRegisters(t *testing.T) {
	a := New()
	a.WriteRegister(0xFF26, 0x80)
	a.WriteRegister(0xFF11, 0x3F)

	a.WriteRegister(0xFF26, 0x00)
	if got := a.ReadRegister(0xFF11); got != 0x00 {
		t.Errorf("ReadRegister(NR11) after power off = 0x%02X; want 0x00", got)
	}
}

func TestAPUWaveRAMBypassesPowerGate(t *testing.T) {
	a := New()
	a.WriteRegister(0xFF30, 0xAB)
	if got := a.ReadRegister(0xFF30); got != 0xAB {
		t.Errorf("ReadRegister(wave RAM) = 0x%02X; want 0xAB", got)
	}
}

func TestSnapshotSquareChannel(t *testing.T) {
	a := New()
	a.WriteRegister(0xFF26, 0x80)
	a.WriteRegister(0xFF11, 0xC0) // duty 3
	a.WriteRegister(0xFF12, 0xF0) // volume 15, direction up irrelevant bit cleared, pace 0, DAC on
	a.WriteRegister(0xFF13, 0x00)
	a.WriteRegister(0xFF14, 0xC7) // restart + length enable + freq high bits

	p := a.Snapshot(Channel1)
	if !p.On {
		t.Error("expected channel 1 On with nonzero envelope top bits")
	}
	if p.Duty != 3 {
		t.Errorf("Duty = %d; want 3", p.Duty)
	}
	if p.Volume != 15 {
		t.Errorf("Volume = %d; want 15", p.Volume)
	}
	if !p.Restart {
		t.Error("expected Restart true")
	}
	if !p.LengthEnable {
		t.Error("expected LengthEnable true")
	}
}

func TestSnapshotDACDisabledMeansOff(t *testing.T) {
	a := New()
	a.WriteRegister(0xFF26, 0x80)
	a.WriteRegister(0xFF12, 0x00) // envelope top 5 bits all zero -> DAC off

	p := a.Snapshot(Channel1)
	if p.On {
		t.Error("expected channel Off when envelope register's DAC bits are all zero")
	}
}
