package main

import (
	"fmt"
	"os"

	"watchloop/internal/version"
)

const usageText = `usage: watchexec [options] -- cmd...

  -w, --watch DIR          add a watch root (repeatable)
  -e, --ext EXT            sugar for --include "*.EXT" (repeatable)
      --include PAT        glob to include (repeatable)
      --exclude PAT        glob to exclude (repeatable)
      --no-vcs-ignore      do not consume .gitignore
      --no-default-ignore  skip built-in ignore patterns
      --no-follow-symlink  disable symlink traversal
  -c, --clear              emit \033c before each run
  -d, --debounce DUR       debounce window as a duration with a unit, e.g. 200ms;
                           a plain number such as 200 is rejected (default 200ms)
  -t, --timeout DUR        per-run wall-clock timeout as a duration with a unit,
                           e.g. 30s; a plain number is rejected (default 3600s)
  -r, --restart            kill and restart on event
  -s, --signal SIG         signal to send (default: forced kill)
      --meta               also observe metadata events
      --env                populate WATCHEXEC_EVENT
      --notify MSG         invoke external notify-send with exit status
  -p, --postpone           do not run at startup
      --clear-events       drain late events after each run
  -o, --oneshot            one-shot mode
      --oneshot-db PATH    one-shot database path
  -v, --verbose LEVEL      verbosity level
      --color MODE         auto|always|never
      --config PATH        path to a .watchexec.yml config file
      --metrics-addr ADDR  serve Prometheus metrics on this address
      --pty                run the watched command attached to a pseudo-terminal
  -h, --help               show help
      --version            print version and exit
`

func printUsage() {
	fmt.Fprint(os.Stdout, usageText)
}

func printVersion() {
	info := version.GetVersionInfo()
	fmt.Printf("watchexec %s (%d.%d.%d)\n", info.Version, info.Major, info.Minor, info.Patch)
}
