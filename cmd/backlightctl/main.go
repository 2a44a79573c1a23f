// backlightctl inspects and drives sysfs backlight devices. Handy for
// checking permissions and wiring before running the daemon.
//
//	backlightctl list
//	backlightctl get [device]
//	backlightctl set <0..1> [device]
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/Mio-of/NdotClock-sub000/pkg/backlight"
)

func main() {
	dir := flag.String("dir", backlight.DefaultSysfsDir, "backlight device directory")
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		usage()
	}

	var err error
	switch args[0] {
	case "list":
		err = list(*dir)
	case "get":
		err = get(*dir, args[1:])
	case "set":
		err = set(*dir, args[1:])
	default:
		usage()
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "backlightctl:", err)
		if errors.Is(err, backlight.ErrPermission) {
			fmt.Fprintln(os.Stderr, "hint: add a udev rule granting write access to the brightness file")
		}
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: backlightctl [-dir path] list | get [device] | set <0..1> [device]")
	os.Exit(2)
}

func list(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	found := 0
	for _, e := range entries {
		dev, err := backlight.FromDirectory(dir + "/" + e.Name())
		if err != nil {
			continue
		}
		level, _ := dev.Level()
		fmt.Printf("%-24s max=%-6d level=%.3f\n", dev.Name(), dev.MaxRaw(), level)
		found++
	}
	if found == 0 {
		return backlight.ErrNoDevice
	}
	return nil
}

func resolve(dir string, args []string) (*backlight.Device, error) {
	spec := "auto"
	if len(args) > 0 {
		spec = args[0]
	}
	return backlight.Resolve(spec, dir)
}

func get(dir string, args []string) error {
	dev, err := resolve(dir, args)
	if err != nil {
		return err
	}
	level, err := dev.Level()
	if err != nil {
		return err
	}
	fmt.Printf("%s %.3f\n", dev.Name(), level)
	return nil
}

func set(dir string, args []string) error {
	if len(args) == 0 {
		usage()
	}
	level, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		return fmt.Errorf("bad level %q: %w", args[0], err)
	}
	dev, err := resolve(dir, args[1:])
	if err != nil {
		return err
	}
	return dev.SetLevel(level)
}
