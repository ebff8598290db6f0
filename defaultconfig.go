package main

const (
	DefaultDebounceMs       = 50
	DefaultHoldMs           = 1000
	DefaultTapTimeoutMs     = 2000
	DefaultDisplayToggleMs  = 3000
	DefaultLiveGigTimeoutMs = 20000
	DefaultPulseMs          = 50
	DefaultPollIntervalMs   = 5

	DefaultStoragePath  = "/var/lib/metropedal/eeprom.bin"
	DefaultI2CBus       = 1
	DefaultMIDINote     = 37
	DefaultMIDIVelocity = 100
)

const configFile = `
# NOTE: Pins are in reference to physical pin numbers

# Input changes shorter than this are treated as contact bounce
DebounceMs = 50
# Holding a footswitch this long counts as a long press
HoldMs = 1000
# A tap sequence ends (and the metronome starts) after this much idle time
TapTimeoutMs = 2000
# Patch mode alternates between patch name and tempo at this interval
DisplayToggleMs = 3000
# In live gig mode the display blanks and beats pause after this much inactivity
LiveGigTimeoutMs = 20000
# Length of the LED beat flash
PulseMs = 50
PollIntervalMs = 5

# Settings and patches are kept in a 512 byte image at this path
StoragePath = "/var/lib/metropedal/eeprom.bin"

# Uncomment to ignore mode changes while live gig mode is on
# LockModeInLiveGig = true

[Pins]
	Primary = 29
	Secondary = 31
	LED = 33
	# Live gig toggle switch. Set to 0 if not fitted.
	LiveGig = 7

[Display]
	# HT16K33 14-segment backpack
	Enabled = true
	Address = 0x70
	Bus = 1

[HTTP]
	Listen = ":80"
	# Uncomment to serve a web UI at /
	# WebRoot = "/usr/share/metropedal/www"

# Uncomment to send a MIDI note on every beat
# [MIDI]
# 	Port = "USB MIDI Interface"
# 	Channel = 9
# 	Note = 37
# 	Velocity = 100

# Uncomment to send "/metropedal/beat <bpm>" over OSC on every beat
# [OSC]
# 	Target = "192.168.1.20:9000"
# 	Address = "/metropedal/beat"

[Watchdog]
	# Leave empty to run without a hardware watchdog
	Device = "/dev/watchdog"
`
