package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/BurntSushi/toml"
	tea "github.com/charmbracelet/bubbletea"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gitlab.com/gomidi/midi/v2"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv"

	"github.com/mastercactapus/metropedal/api"
	"github.com/mastercactapus/metropedal/beatout"
	"github.com/mastercactapus/metropedal/display"
	"github.com/mastercactapus/metropedal/pedal"
	"github.com/mastercactapus/metropedal/sim"
	"github.com/mastercactapus/metropedal/store"
	"github.com/mastercactapus/metropedal/watchdog"
)

var (
	installPrefix string
	installReset  bool
	configPath    string
	simStorage    string
	debug         bool

	mainCmd = &cobra.Command{
		Use:   "metropedal",
		Short: "Footswitch metronome pedal",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if debug {
				log.SetLevel(log.DebugLevel)
			}
		},
	}
	runCmd = &cobra.Command{
		Use:   "run",
		Short: "Run the pedal on Raspberry Pi hardware",
		Run:   runPedal,
	}
	simCmd = &cobra.Command{
		Use:   "sim",
		Short: "Run the pedal in the terminal",
		Run:   runSim,
	}
	installCmd = &cobra.Command{
		Use:   "install",
		Short: "Install the binary, systemd unit and default config",
		Run:   runInstall,
	}
	resetCmd = &cobra.Command{
		Use:   "reset",
		Short: "Erase stored settings and patches",
		Run:   runReset,
	}
)

func runInstall(cmd *cobra.Command, args []string) {
	err := install(installPrefix, installReset)
	if err != nil {
		log.Fatalln("install:", err)
	}
}

func loadConfig(path string) Config {
	var c Config
	_, err := toml.DecodeFile(path, &c)
	if err != nil {
		log.Fatalln("load config:", err)
	}
	if err := c.Validate(); err != nil {
		log.Fatalln("config:", err)
	}
	return c
}

func openStore(path string) *store.Store {
	s, err := store.Open(path)
	if err != nil {
		log.Fatalln("open storage:", err)
	}
	return s
}

func runReset(cmd *cobra.Command, args []string) {
	c := loadConfig(configPath)
	st := openStore(c.StoragePath)
	if err := st.Erase(); err != nil {
		log.Fatalln("reset:", err)
	}
	log.WithField("Path", st.Path()).Infoln("storage erased")
}

// beatListeners opens the optional MIDI and OSC outputs. Failures are logged
// and the output is skipped.
func beatListeners(c Config) (l []pedal.BeatListener, closeAll func()) {
	closeAll = func() {}
	if c.MIDI.Port != "" {
		m, err := beatout.OpenMIDI(c.MIDI.Port, c.MIDI.Channel, c.MIDI.Note, c.MIDI.Velocity)
		if err != nil {
			log.Warnln("midi:", err)
		} else {
			log.WithField("Port", c.MIDI.Port).Infoln("midi beat output")
			l = append(l, m)
			closeAll = func() {
				m.Close()
				midi.CloseDriver()
			}
		}
	}
	if c.OSC.Target != "" {
		o, err := beatout.NewOSC(c.OSC.Target, c.OSC.Address)
		if err != nil {
			log.Warnln("osc:", err)
		} else {
			log.WithField("Target", c.OSC.Target).Infoln("osc beat output")
			l = append(l, o)
		}
	}
	return l, closeAll
}

// openWatchdog arms the configured device, or returns a no-op watchdog when
// none is set.
func openWatchdog(c WatchdogConfig) (watchdog.Watchdog, error) {
	if c.Device == "" {
		log.Infoln("no watchdog configured")
		return watchdog.Nop{}, nil
	}
	dev, err := watchdog.Open(c.Device)
	if err != nil {
		return nil, err
	}
	return dev, nil
}

func loadState(s *store.Store) (store.Settings, store.Bank) {
	settings, err := s.LoadSettings()
	if err != nil {
		log.Errorln("load settings:", err)
	}
	bank, err := s.LoadPatches()
	if err != nil {
		log.Errorln("load patches:", err)
	}
	return settings, bank
}

func runPedal(cmd *cobra.Command, args []string) {
	c := loadConfig(configPath)

	b, err := openBoard(c.Pins)
	if err != nil {
		log.Fatalln("hardware:", err)
	}
	defer b.Close()

	st := openStore(c.StoragePath)

	in, err := b.Sample()
	if err != nil {
		log.Fatalln("read inputs:", err)
	}
	if pedal.BothHeld(in) {
		log.Warnln("both switches held at boot, erasing settings and patches")
		if err := st.Erase(); err != nil {
			log.Errorln("erase:", err)
		}
		b.Close()
		// systemd restarts the service with a fresh store
		os.Exit(1)
	}

	settings, bank := loadState(st)

	var disp display.Renderer = &display.Log{}
	if c.Display.Enabled {
		d, err := b.openDisplay(c.Display)
		if err != nil {
			log.Errorln("display:", err)
		} else {
			defer d.Close()
			disp = d
		}
	}

	listeners, closeListeners := beatListeners(c)
	defer closeListeners()

	wd, err := openWatchdog(c.Watchdog)
	if err != nil {
		log.Fatalln("watchdog:", err)
	}
	defer wd.Close()

	var srv *api.Server
	pc := c.PedalConfig()
	pc.Store = st
	pc.Display = disp
	pc.LED = b
	pc.Listeners = listeners
	pc.Online = func() bool { return srv != nil && srv.Online() }

	ctrl := pedal.New(pc, settings, bank, time.Now())
	loop := pedal.NewLoop(ctrl, b, wd, c.PollInterval())
	srv = api.New(pedal.NewRemote(loop), c.HTTP.WebRoot)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if c.HTTP.Listen != "" {
		go func() {
			if err := srv.ListenAndServe(ctx, c.HTTP.Listen); err != nil {
				log.Errorln("http:", err)
			}
		}()
	}

	log.WithFields(log.Fields{
		"Patches": bank.Count,
		"LiveGig": settings.LiveGigMode,
	}).Infoln("pedal running")
	if err := loop.Run(ctx); err != nil {
		log.Errorln("run:", err)
		return
	}
	log.Infoln("shutting down")
}

func runSim(cmd *cobra.Command, args []string) {
	var c Config
	if _, err := os.Stat(configPath); err == nil {
		c = loadConfig(configPath)
	} else {
		if _, err := toml.Decode(configFile, &c); err != nil {
			log.Fatalln("default config:", err)
		}
		if err := c.Validate(); err != nil {
			log.Fatalln("config:", err)
		}
	}
	if simStorage != "" {
		c.StoragePath = simStorage
	}

	// keep log output from tearing the terminal UI
	f, err := tea.LogToFile("metropedal-sim.log", "")
	if err != nil {
		log.Fatalln("log file:", err)
	}
	defer f.Close()
	log.SetOutput(f)

	st := openStore(c.StoragePath)
	settings, bank := loadState(st)

	listeners, closeListeners := beatListeners(c)
	defer closeListeners()

	pc := c.PedalConfig()
	pc.Store = st
	pc.Listeners = listeners
	panel := sim.Attach(&pc)
	ctrl := pedal.New(pc, settings, bank, time.Now())

	if _, err := tea.NewProgram(sim.NewModel(ctrl, panel)).Run(); err != nil {
		log.Fatalln("sim:", err)
	}
}

func main() {
	installCmd.Flags().BoolVar(&installReset, "reset", false, "Reset config. Resets configuration to default, even if a config file already exists")
	installCmd.Flags().StringVarP(&installPrefix, "prefix", "p", "", "Install prefix. Prefix to install directory, default is /")
	simCmd.Flags().StringVar(&simStorage, "storage", "metropedal-sim.bin", "Storage image path for the simulator")
	mainCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "/etc/metropedal.conf", "Config path. The path to the configuration file")
	mainCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Debug logging")
	mainCmd.AddCommand(runCmd, simCmd, installCmd, resetCmd)
	if err := mainCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
