package commands

import (
	"errors"
	"io"

	trashseparator "github.com/weedkat/trash-separator"
)

type Command struct {
	Flag        byte
	InputSize   uint
	Run         func(Device, []byte) (string, error)
	Description string
}

// Device is the hardware behind the bridge
type Device interface {
	SetPulse(axis byte, us int16) error
	Release(axis byte) error
	IsHome() (bool, error)
}

// Port is the byte stream the bridge talks over
type Port interface {
	ReadByte() (byte, error)
	Write([]byte) (int, error)
}

var errUnknownAxis = errors.New("unknown axis")

var (
	SetPulseCommand = &Command{
		Flag:      trashseparator.CommandSetPulse,
		InputSize: 3,
		Run: func(d Device, input []byte) (string, error) {
			axis, err := checkAxis(input[0])
			if err != nil {
				return "", err
			}
			us := trashseparator.DecodePulse([2]byte{input[1], input[2]})
			err = d.SetPulse(axis, us)
			if err != nil {
				return "", err
			}
			return trashseparator.ReplyOK, nil
		},
		Description: "Set the pulse width of a servo. Input: axis 'T' or 'B', then the width in microseconds as two 7-bit bytes, low first.",
	}
	ReleaseCommand = &Command{
		Flag:      trashseparator.CommandRelease,
		InputSize: 1,
		Run: func(d Device, input []byte) (string, error) {
			axis, err := checkAxis(input[0])
			if err != nil {
				return "", err
			}
			err = d.Release(axis)
			if err != nil {
				return "", err
			}
			return trashseparator.ReplyOK, nil
		},
		Description: "Stop sending pulses to a servo. Input: axis 'T' or 'B'.",
	}
	HomeCommand = &Command{
		Flag:      trashseparator.CommandHome,
		InputSize: 0,
		Run: func(d Device, _ []byte) (string, error) {
			home, err := d.IsHome()
			if err != nil {
				return "", err
			}
			if home {
				return trashseparator.ReplyHome, nil
			}
			return trashseparator.ReplyNotHome, nil
		},
		Description: "Read the home switch. Replies 1 when the gate is home, 0 otherwise.",
	}
	PingCommand = &Command{
		Flag:      trashseparator.CommandPing,
		InputSize: 0,
		Run: func(Device, []byte) (string, error) {
			return trashseparator.ReplyOK, nil
		},
		Description: "Check that the bridge is alive.",
	}
	HelpCommand = &Command{
		Flag:        trashseparator.CommandHelp,
		InputSize:   0,
		Description: "Show all available commands and their descriptions.",
		Run: func(Device, []byte) (string, error) {
			out := "Available Commands:"
			for _, cmd := range commands {
				out += "\n" + string(cmd.Flag) + ": " + cmd.Description
			}
			return out, nil
		},
	}
)

var commands = []*Command{
	SetPulseCommand,
	ReleaseCommand,
	HomeCommand,
	PingCommand,
}

func checkAxis(b byte) (byte, error) {
	switch b {
	case trashseparator.AxisTop, trashseparator.AxisBottom:
		return b, nil
	default:
		return 0, errUnknownAxis
	}
}

// Run answers commands from p until it reports io.EOF. Bytes that are not a command
// flag are skipped, so line endings typed by a human are harmless
func Run(d Device, p Port) error {
	cmdMap := map[byte]*Command{
		HelpCommand.Flag: HelpCommand,
	}

	for _, cmd := range commands {
		cmdMap[cmd.Flag] = cmd
	}

	for {
		cmdIn, err := p.ReadByte()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			continue
		}

		cmd, ok := cmdMap[cmdIn]
		if !ok {
			continue
		}

		in := make([]byte, cmd.InputSize)
		for i := 0; i < int(cmd.InputSize); {
			b, err := p.ReadByte()
			if err != nil {
				if errors.Is(err, io.EOF) {
					return nil
				}
				continue
			}

			in[i] = b
			i++
		}

		reply, err := cmd.Run(d, in)
		if err != nil {
			reply = trashseparator.ReplyError + err.Error()
		}

		_, err = p.Write([]byte(reply + string(trashseparator.TerminationChar)))
		if err != nil {
			return err
		}
	}
}
