// Command ninepget is a small command-line 9P2000 client: ls, cat, stat,
// and put against a running ninepfsd (or any compatible) server.
package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/treehollow/ninefs"
)

type command struct {
	usage string
	run   func(s *ninefs.Session, args []string) error
}

var commands = map[string]command{
	"ls":   {"ls PATH", runLs},
	"cat":  {"cat PATH", runCat},
	"stat": {"stat PATH", runStat},
	"put":  {"put LOCAL-FILE PATH", runPut},
}

func main() {
	if len(os.Args) < 3 {
		usage()
	}
	addr := os.Args[1]
	name := os.Args[2]
	cmd, ok := commands[name]
	if !ok {
		usage()
	}

	s, err := ninefs.Dial("tcp", addr)
	if err != nil {
		fatal(err)
	}
	defer s.Close()
	if _, err := s.Version(ninefs.ServerMaxMsize); err != nil {
		fatal(err)
	}

	if err := cmd.run(s, os.Args[3:]); err != nil {
		fatal(err)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, "usage: %s ADDR CMD [args...]\ncommands:\n", os.Args[0])
	for _, c := range commands {
		fmt.Fprintf(os.Stderr, "  %s\n", c.usage)
	}
	os.Exit(2)
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "%s: %v\n", os.Args[0], err)
	os.Exit(1)
}

// attachAndWalk binds fid 1 at the root, then walks it to path, returning
// the fid the caller should operate on (rootFid itself when path names the
// root).
func attachAndWalk(s *ninefs.Session, path string) (uint32, error) {
	const rootFid = 1
	const targetFid = 2
	if _, err := s.Attach(rootFid, os.Getenv("USER"), ""); err != nil {
		return 0, err
	}
	names := splitPath(path)
	if len(names) == 0 {
		return rootFid, nil
	}
	if _, err := s.Walk(rootFid, targetFid, names); err != nil {
		return 0, err
	}
	return targetFid, nil
}

func splitPath(path string) []string {
	var out []string
	for _, p := range strings.Split(path, "/") {
		if p != "" && p != "." {
			out = append(out, p)
		}
	}
	return out
}

func runLs(s *ninefs.Session, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("ls: expected exactly one path")
	}
	fid, err := attachAndWalk(s, args[0])
	if err != nil {
		return err
	}
	if _, _, err := s.Open(fid, ninefs.OREAD); err != nil {
		return err
	}
	entries, err := s.ReadDir(fid, 0)
	if err != nil {
		return err
	}
	for _, e := range entries {
		kind := "-"
		if e.Mode&ninefs.DMDIR != 0 {
			kind = "d"
		}
		fmt.Printf("%s %8d %s\n", kind, e.Length, e.Name)
	}
	return nil
}

func runCat(s *ninefs.Session, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("cat: expected exactly one path")
	}
	fid, err := attachAndWalk(s, args[0])
	if err != nil {
		return err
	}
	if _, _, err := s.Open(fid, ninefs.OREAD); err != nil {
		return err
	}
	var offset uint64
	for {
		chunk, err := s.Read(fid, offset, ninefs.IOUnit)
		if err != nil {
			return err
		}
		if len(chunk) == 0 {
			return nil
		}
		if _, err := os.Stdout.Write(chunk); err != nil {
			return err
		}
		offset += uint64(len(chunk))
	}
}

func runStat(s *ninefs.Session, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("stat: expected exactly one path")
	}
	fid, err := attachAndWalk(s, args[0])
	if err != nil {
		return err
	}
	st, err := s.Stat(fid)
	if err != nil {
		return err
	}
	fmt.Printf("name=%s mode=%#o length=%d uid=%s gid=%s\n", st.Name, st.Mode, st.Length, st.Uid, st.Gid)
	return nil
}

func runPut(s *ninefs.Session, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("put: expected LOCAL-FILE and PATH")
	}
	local, remotePath := args[0], args[1]

	f, err := os.Open(local)
	if err != nil {
		return err
	}
	defer f.Close()

	dir := parentOf(remotePath)
	name := baseOf(remotePath)

	dfid, err := attachAndWalk(s, dir)
	if err != nil {
		return err
	}
	if _, _, err := s.Create(dfid, name, 0644, ninefs.OWRITE); err != nil {
		return err
	}

	buf := make([]byte, ninefs.IOUnit)
	var offset uint64
	for {
		n, err := f.Read(buf)
		if n > 0 {
			if _, werr := s.Write(dfid, offset, buf[:n]); werr != nil {
				return werr
			}
			offset += uint64(n)
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

func parentOf(path string) string {
	segs := splitPath(path)
	if len(segs) <= 1 {
		return "/"
	}
	return "/" + strings.Join(segs[:len(segs)-1], "/")
}

func baseOf(path string) string {
	segs := splitPath(path)
	if len(segs) == 0 {
		return ""
	}
	return segs[len(segs)-1]
}
