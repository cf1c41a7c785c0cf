package cmd

import (
	"fmt"
	"time"

	"github.com/mikaelmello/reachping/core"
)

func printOnStart(s *core.Session, addr *core.ResolvedAddress) {
	fmt.Printf("PING %s (%s)\n", s.Host(), addr)
}

func printOnResult(s *core.Session, res *core.Result) {
	switch res.Status {
	case core.Succeeded:
		fmt.Printf("%d bytes from %s (%s): icmp_seq=%d time=%s\n",
			res.Len, s.Host(), res.Addr, res.Sequence, res.Latency.Truncate(time.Microsecond))
	case core.TimedOut:
		fmt.Printf("no reply from %s: %s\n", s.Host(), res.Err)
	case core.Failed:
		fmt.Printf("ping %s failed: %s\n", s.Host(), res.Err)
	}
}

func printReachability(hosts []string, reachable bool) {
	if reachable {
		fmt.Printf("reachable: at least one of %d host(s) replied\n", len(hosts))
		return
	}
	fmt.Printf("not reachable: none of %d host(s) replied\n", len(hosts))
}
