/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/allbin/nanocom/internal/tui/styles"
	"github.com/allbin/nanocom/serial"
	"github.com/evertras/bubble-table/table"
	"github.com/spf13/cobra"
)

// listCmd represents the list command
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List available serial ports",
	Long: `List all available serial ports on the system.

This command scans for communication-capable serial devices including:
- USB serial adapters (ttyUSB*)
- USB CDC/ACM devices (ttyACM*)
- Standard serial ports (ttyS*)
- ARM/Raspberry Pi ports (ttyAMA*)
- And other platform-specific serial devices

Virtual terminals and pseudo-terminals are excluded from the listing.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ports, err := serial.ListPorts()
		if err != nil {
			return fmt.Errorf("listing ports: %w", err)
		}

		filterType, _ := cmd.Flags().GetString("filter")
		tableFormat, _ := cmd.Flags().GetBool("table")

		filtered, err := filterPorts(ports, filterType)
		if err != nil {
			return err
		}

		if len(filtered) == 0 {
			if filterType != "" && filterType != "all" {
				fmt.Fprintf(os.Stderr, "No serial ports found matching filter: %s\n", filterType)
			} else {
				fmt.Fprintln(os.Stderr, "No serial ports found")
			}
			return nil
		}

		if tableFormat {
			fmt.Println(renderTable(portInfos(filtered)))
		} else {
			renderSimple(filtered)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(listCmd)

	listCmd.Flags().StringP("filter", "f", "", "Filter by port type: usb, standard, arm, all")
	listCmd.Flags().BoolP("table", "t", false, "Display output in a styled table format")
}

// filterPorts filters the port list based on the specified filter type
func filterPorts(ports []string, filterType string) ([]string, error) {
	filterType = strings.ToLower(filterType)
	switch filterType {
	case "", "all":
		return ports, nil
	case "usb", "standard", "arm":
	default:
		return nil, fmt.Errorf("invalid value for --filter: %q (use usb, standard, arm, or all)", filterType)
	}

	var filtered []string
	for _, port := range ports {
		if portMatches(port, filterType) {
			filtered = append(filtered, port)
		}
	}
	return filtered, nil
}

func portMatches(port, filterType string) bool {
	name := strings.ToLower(port[strings.LastIndex(port, "/")+1:])
	switch filterType {
	case "usb":
		return strings.HasPrefix(name, "ttyusb") || strings.HasPrefix(name, "ttyacm")
	case "standard":
		return strings.HasPrefix(name, "ttys") && !strings.HasPrefix(name, "ttysac")
	case "arm":
		return strings.HasPrefix(name, "ttyama")
	}
	return false
}

// portInfos looks up every port, keeping a bare entry for ports whose
// details cannot be read
func portInfos(ports []string) []*serial.PortInfo {
	infos := make([]*serial.PortInfo, 0, len(ports))
	for _, port := range ports {
		info, err := serial.GetPortInfo(port)
		if err != nil {
			log.WithError(err).WithField("port", port).Debug("reading port info")
			info = &serial.PortInfo{
				Name:        port[strings.LastIndex(port, "/")+1:],
				Path:        port,
				Description: "Unknown",
			}
		}
		infos = append(infos, info)
	}
	return infos
}

const (
	columnKeyPort        = "port"
	columnKeyType        = "type"
	columnKeyDescription = "description"
	columnKeyUSBID       = "usbid"
	columnKeySerial      = "serial"
)

// renderTable renders the port list as a static bordered table
func renderTable(infos []*serial.PortInfo) string {
	columns := []table.Column{
		table.NewColumn(columnKeyPort, "Port", 16),
		table.NewColumn(columnKeyType, "Type", 16),
		table.NewColumn(columnKeyDescription, "Description", 30),
		table.NewColumn(columnKeyUSBID, "VID:PID", 11),
		table.NewColumn(columnKeySerial, "Serial", 16),
	}

	rows := make([]table.Row, 0, len(infos))
	for _, info := range infos {
		usbID := ""
		if info.IsUSB() {
			usbID = info.VendorID + ":" + info.ProductID
		}
		rows = append(rows, table.NewRow(table.RowData{
			columnKeyPort:        info.Path,
			columnKeyType:        getPortType(info.Name),
			columnKeyDescription: info.Description,
			columnKeyUSBID:       usbID,
			columnKeySerial:      info.SerialNumber,
		}))
	}

	t := table.New(columns).
		WithRows(rows).
		BorderRounded().
		HeaderStyle(styles.TableHeaderStyle).
		WithBaseStyle(styles.TableBaseStyle)

	return fmt.Sprintf("Found %d serial port(s):\n\n%s", len(infos), t.View())
}

// renderSimple renders the port list in simple text format
func renderSimple(ports []string) {
	for _, port := range ports {
		fmt.Println(port)
	}
}

// getPortType returns a more specific type classification for the port
func getPortType(name string) string {
	name = strings.ToLower(name)
	switch {
	case strings.HasPrefix(name, "ttyusb"):
		return "USB Serial"
	case strings.HasPrefix(name, "ttyacm"):
		return "USB CDC/ACM"
	case strings.HasPrefix(name, "ttyama"):
		return "ARM Serial"
	case strings.HasPrefix(name, "ttymxc"):
		return "i.MX Serial"
	case strings.HasPrefix(name, "ttysac"):
		return "Samsung Serial"
	case strings.HasPrefix(name, "ttyths"):
		return "Tegra Serial"
	case strings.HasPrefix(name, "ttyo"):
		return "OMAP Serial"
	case strings.HasPrefix(name, "ttys"):
		return "Standard Serial"
	default:
		return "Serial Port"
	}
}
