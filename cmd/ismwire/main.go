// ismwire converts between AT text and the byte order seen on the ISM43362 SPI lines.
//
//	ismwire enc 'MT=1'        # command, CR appended: 544d313d0a0d
//	ismwire dec 0x544d313d    # logical text of captured wire bytes
package main

import (
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/soypat/ism43362/esat"
)

func main() {
	if len(os.Args) < 3 {
		fmt.Fprintln(os.Stderr, "usage: ismwire enc|enc-raw|dec <arg>")
		os.Exit(2)
	}
	out, err := run(os.Args[1], os.Args[2])
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(out)
}

func run(mode, arg string) (string, error) {
	switch mode {
	case "enc", "enc-raw":
		text := arg
		if strings.HasPrefix(arg, `"`) {
			unq, err := strconv.Unquote(arg)
			if err != nil {
				return "", err
			}
			text = unq
		}
		if mode == "enc" {
			if op, ok := esat.Lookup([]byte(text)); ok {
				fmt.Fprintf(os.Stderr, "%s (%s)\n", op, op.Template().Name)
			}
			text += "\r"
		}
		return hex.EncodeToString(esat.AppendEncoded(nil, []byte(text))), nil
	case "dec":
		arg = strings.TrimPrefix(arg, "0x")
		arg = strings.ReplaceAll(arg, " ", "")
		wire, err := hex.DecodeString(arg)
		if err != nil {
			return "", err
		}
		if len(wire)%2 != 0 {
			return "", errors.New("wire data must be whole 16-bit words")
		}
		return strconv.Quote(string(esat.AppendDecoded(nil, wire))), nil
	}
	return "", fmt.Errorf("unknown mode %q", mode)
}
