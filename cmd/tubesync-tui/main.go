package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/handiism/tubesync/internal/config"
	"github.com/handiism/tubesync/internal/tui"
)

func main() {
	os.Exit(run())
}

func run() int {
	configFlag := flag.String("config", "", "Path to config file (.json, .yaml or .yml)")
	debugFlag := flag.String("debug", "", "Write a debug log to this file")
	flag.Parse()

	settings := config.DefaultSettings()
	if *configFlag != "" {
		var err error
		settings, err = config.Load(*configFlag)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			return 1
		}
	}
	settings.ApplyEnv()

	// The alternate screen owns the terminal, so logs go to a file or nowhere.
	if *debugFlag != "" {
		f, err := tea.LogToFile(*debugFlag, "tubesync")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		defer f.Close()
	} else {
		log.SetOutput(io.Discard)
	}

	if err := tui.Run(settings); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}
