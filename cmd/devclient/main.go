// Command devclient is a menu-driven terminal front-end for the developer
// service, grounded on original_source's developer/developer_client.py.
package main

import (
	"bufio"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"flag"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"

	"github.com/brightforge/gamevault/internal/frame"
)

const rawChunk = 32 * 1024

// client holds one dev-service connection plus the developer's session.
type client struct {
	conn        net.Conn
	in          *bufio.Reader
	developerID int64
	username    string
}

func main() {
	host := flag.String("host", "127.0.0.1", "developer server host")
	port := flag.Int("port", 9002, "developer server port")
	flag.Parse()

	conn, err := net.Dial("tcp", fmt.Sprintf("%s:%d", *host, *port))
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect: %v\n", err)
		os.Exit(1)
	}
	defer conn.Close()

	c := &client{conn: conn, in: bufio.NewReader(os.Stdin)}
	fmt.Printf("connected to %s:%d\n", *host, *port)
	c.loop()
}

func (c *client) req(typ string, data map[string]any) (map[string]any, error) {
	if err := frame.Write(c.conn, map[string]any{"type": typ, "data": data}); err != nil {
		return nil, err
	}
	var resp map[string]any
	if err := frame.Read(c.conn, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *client) prompt(label string) string {
	fmt.Print(label)
	line, _ := c.in.ReadString('\n')
	return strings.TrimSpace(line)
}

func printResp(r map[string]any) {
	if ok, _ := r["ok"].(bool); ok {
		fmt.Println("[OK]")
		return
	}
	fmt.Printf("[ERR] %v\n", r["error"])
}

func (c *client) loop() {
	for {
		fmt.Println()
		if c.developerID == 0 {
			fmt.Println("1) register  2) login  0) quit")
		} else {
			fmt.Printf("logged in as %s\n", c.username)
			fmt.Println("1) list my games  2) delist/relist  3) upload version  4) logout  0) quit")
		}
		choice := c.prompt("> ")

		var err error
		switch {
		case c.developerID == 0 && choice == "1":
			err = c.doRegister()
		case c.developerID == 0 && choice == "2":
			err = c.doLogin()
		case c.developerID != 0 && choice == "1":
			err = c.doListMine()
		case c.developerID != 0 && choice == "2":
			err = c.doDelist()
		case c.developerID != 0 && choice == "3":
			err = c.doUpload()
		case c.developerID != 0 && choice == "4":
			err = c.doLogout()
		case choice == "0":
			return
		default:
			fmt.Println("invalid choice")
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			return
		}
	}
}

func (c *client) doRegister() error {
	u := c.prompt("username: ")
	p := c.prompt("password: ")
	r, err := c.req("dev_register", map[string]any{"username": u, "password": p})
	if err != nil {
		return err
	}
	printResp(r)
	return nil
}

func (c *client) doLogin() error {
	u := c.prompt("username: ")
	p := c.prompt("password: ")
	r, err := c.req("dev_login", map[string]any{"username": u, "password": p})
	if err != nil {
		return err
	}
	printResp(r)
	if ok, _ := r["ok"].(bool); ok {
		if id, ok := r["developerId"].(float64); ok {
			c.developerID = int64(id)
		}
		if name, ok := r["username"].(string); ok {
			c.username = name
		}
	}
	return nil
}

func (c *client) doLogout() error {
	r, err := c.req("dev_logout", map[string]any{})
	if err != nil {
		return err
	}
	c.developerID = 0
	c.username = ""
	printResp(r)
	return nil
}

func (c *client) doListMine() error {
	r, err := c.req("game_list_mine", map[string]any{})
	if err != nil {
		return err
	}
	printResp(r)
	games, _ := r["games"].([]any)
	for _, gi := range games {
		g, _ := gi.(map[string]any)
		fmt.Printf("  - %v name=%v delisted=%v latest=%v\n", g["gameId"], g["name"], g["delisted"], g["latestVersion"])
	}
	return nil
}

func (c *client) chooseGameID(prompt string) (string, error) {
	r, err := c.req("game_list_mine", map[string]any{})
	if err != nil {
		return "", err
	}
	if ok, _ := r["ok"].(bool); !ok {
		printResp(r)
		return "", nil
	}
	games, _ := r["games"].([]any)
	if len(games) == 0 {
		fmt.Println("(no games)")
		return "", nil
	}
	fmt.Println(prompt)
	for i, gi := range games {
		g, _ := gi.(map[string]any)
		fmt.Printf("%d) %v (gameId=%v)\n", i+1, g["name"], g["gameId"])
	}
	choice := c.prompt(fmt.Sprintf("choose (1-%d, 0 to cancel): ", len(games)))
	idx, err := strconv.Atoi(choice)
	if err != nil || idx <= 0 || idx > len(games) {
		return "", nil
	}
	g, _ := games[idx-1].(map[string]any)
	gameID, _ := g["gameId"].(string)
	return gameID, nil
}

func (c *client) doDelist() error {
	gameID, err := c.chooseGameID("choose a game to toggle listing")
	if err != nil || gameID == "" {
		return err
	}
	delistedStr := c.prompt("delist? (y/N): ")
	delisted := strings.EqualFold(delistedStr, "y") || strings.EqualFold(delistedStr, "yes")
	r, err := c.req("game_delist", map[string]any{"gameId": gameID, "delisted": delisted})
	if err != nil {
		return err
	}
	printResp(r)
	return nil
}

func (c *client) doUpload() error {
	path := c.prompt("path to game zip: ")
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "reading zip: %v\n", err)
		return nil
	}
	sum := sha256.Sum256(data)
	sha := hex.EncodeToString(sum[:])

	gameID := c.prompt("gameId (blank to auto-create): ")
	version := c.prompt("version: ")
	initData := map[string]any{
		"version": version, "fileName": path, "sizeBytes": len(data), "sha256": sha,
	}
	if gameID != "" {
		initData["gameId"] = gameID
	} else {
		initData["name"] = c.prompt("name: ")
		initData["description"] = c.prompt("description: ")
	}

	r, err := c.req("game_upload_init", initData)
	if err != nil {
		return err
	}
	if ok, _ := r["ok"].(bool); !ok {
		printResp(r)
		return nil
	}
	uploadID, _ := r["uploadId"].(string)
	fmt.Printf("uploading as gameId=%v\n", r["gameId"])

	seq := 0
	for off := 0; off < len(data); off += rawChunk {
		end := off + rawChunk
		if end > len(data) {
			end = len(data)
		}
		chunk := data[off:end]
		cr, err := c.req("game_upload_chunk", map[string]any{
			"uploadId": uploadID, "seq": seq, "dataB64": base64.StdEncoding.EncodeToString(chunk),
		})
		if err != nil {
			return err
		}
		if ok, _ := cr["ok"].(bool); !ok {
			printResp(cr)
			return nil
		}
		seq++
	}

	changelog := c.prompt("changelog: ")
	fr, err := c.req("game_upload_finish", map[string]any{"uploadId": uploadID, "changelog": changelog})
	if err != nil {
		return err
	}
	printResp(fr)
	return nil
}
