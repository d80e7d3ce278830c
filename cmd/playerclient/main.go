// Command playerclient is a menu-driven terminal front-end for the lobby
// service, grounded on original_source's player/lobby_client.py. Pushed
// events (game_info, game_ready, player_joined, player_left, host_changed)
// arrive on the same socket as replies, so a reader goroutine demultiplexes
// them into an event printer and a reply channel.
package main

import (
	"bufio"
	"encoding/base64"
	"flag"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"

	"github.com/brightforge/gamevault/internal/frame"
)

type client struct {
	conn     net.Conn
	in       *bufio.Reader
	replies  chan map[string]any
	playerID int64
	username string
	roomID   int64
}

func main() {
	host := flag.String("host", "127.0.0.1", "lobby server host")
	port := flag.Int("port", 9003, "lobby server port")
	flag.Parse()

	conn, err := net.Dial("tcp", fmt.Sprintf("%s:%d", *host, *port))
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect: %v\n", err)
		os.Exit(1)
	}
	defer conn.Close()

	c := &client{conn: conn, in: bufio.NewReader(os.Stdin), replies: make(chan map[string]any, 1)}
	go c.readLoop()

	fmt.Printf("connected to %s:%d\n", *host, *port)
	c.loop()
}

// readLoop demultiplexes pushed events from replies: a frame with
// type=="event" is printed inline, everything else is handed to the
// pending req() call.
func (c *client) readLoop() {
	for {
		var msg map[string]any
		if err := frame.Read(c.conn, &msg); err != nil {
			close(c.replies)
			return
		}
		if msg["type"] == "event" {
			printEvent(msg)
			continue
		}
		c.replies <- msg
	}
}

func printEvent(msg map[string]any) {
	name, _ := msg["name"].(string)
	fmt.Printf("\n[event %s] %v\n> ", name, msg["data"])
}

func (c *client) req(typ string, data map[string]any) (map[string]any, error) {
	if err := frame.Write(c.conn, map[string]any{"type": typ, "data": data}); err != nil {
		return nil, err
	}
	resp, ok := <-c.replies
	if !ok {
		return nil, fmt.Errorf("server closed connection")
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
		if c.playerID == 0 {
			fmt.Println("1) register  2) login  0) quit")
		} else if c.roomID == 0 {
			fmt.Println("1) list games  2) game detail  3) download  4) create room  5) join room  6) list rooms  7) review  8) match history  9) logout  0) quit")
		} else {
			fmt.Printf("in room %d\n", c.roomID)
			fmt.Println("1) room detail  2) start match  3) leave room  9) logout  0) quit")
		}
		choice := c.prompt("> ")

		var err error
		switch {
		case c.playerID == 0 && choice == "1":
			err = c.doRegister()
		case c.playerID == 0 && choice == "2":
			err = c.doLogin()
		case c.playerID != 0 && c.roomID == 0 && choice == "1":
			err = c.doListGames()
		case c.playerID != 0 && c.roomID == 0 && choice == "2":
			err = c.doGameDetail()
		case c.playerID != 0 && c.roomID == 0 && choice == "3":
			err = c.doDownload()
		case c.playerID != 0 && c.roomID == 0 && choice == "4":
			err = c.doRoomCreate()
		case c.playerID != 0 && c.roomID == 0 && choice == "5":
			err = c.doRoomJoin()
		case c.playerID != 0 && c.roomID == 0 && choice == "6":
			err = c.doRoomList()
		case c.playerID != 0 && c.roomID == 0 && choice == "7":
			err = c.doReview()
		case c.playerID != 0 && c.roomID == 0 && choice == "8":
			err = c.doMatchHistory()
		case c.playerID != 0 && c.roomID != 0 && choice == "1":
			err = c.doRoomDetail()
		case c.playerID != 0 && c.roomID != 0 && choice == "2":
			err = c.doRoomStart()
		case c.playerID != 0 && c.roomID != 0 && choice == "3":
			err = c.doRoomLeave()
		case c.playerID != 0 && choice == "9":
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
	r, err := c.req("player_register", map[string]any{"username": u, "password": p})
	if err != nil {
		return err
	}
	printResp(r)
	return nil
}

func (c *client) doLogin() error {
	u := c.prompt("username: ")
	p := c.prompt("password: ")
	r, err := c.req("player_login", map[string]any{"username": u, "password": p})
	if err != nil {
		return err
	}
	printResp(r)
	if ok, _ := r["ok"].(bool); ok {
		if id, ok := r["playerId"].(float64); ok {
			c.playerID = int64(id)
		}
		if name, ok := r["username"].(string); ok {
			c.username = name
		}
	}
	return nil
}

func (c *client) doLogout() error {
	r, err := c.req("player_logout", map[string]any{})
	if err != nil {
		return err
	}
	c.playerID = 0
	c.username = ""
	c.roomID = 0
	printResp(r)
	return nil
}

func (c *client) doListGames() error {
	r, err := c.req("store_list_games", map[string]any{})
	if err != nil {
		return err
	}
	printResp(r)
	games, _ := r["games"].([]any)
	for _, gi := range games {
		g, _ := gi.(map[string]any)
		fmt.Printf("  - %v %q by %v latest=%v\n", g["gameId"], g["name"], g["developerUsername"], g["latestVersion"])
	}
	return nil
}

func (c *client) doGameDetail() error {
	gameID := c.prompt("gameId: ")
	r, err := c.req("store_game_detail", map[string]any{"gameId": gameID})
	if err != nil {
		return err
	}
	printResp(r)
	if ok, _ := r["ok"].(bool); ok {
		fmt.Printf("game: %v\nlatestVersion: %v\nreviews: %v\n", r["game"], r["latestVersion"], r["reviews"])
	}
	return nil
}

func (c *client) doDownload() error {
	gameID := c.prompt("gameId: ")
	initR, err := c.req("store_download_init", map[string]any{"gameId": gameID})
	if err != nil {
		return err
	}
	if ok, _ := initR["ok"].(bool); !ok {
		printResp(initR)
		return nil
	}
	downloadID, _ := initR["downloadId"].(string)
	fileName, _ := initR["fileName"].(string)
	sizeBytes, _ := initR["sizeBytes"].(float64)

	out, err := os.Create(fileName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "creating %s: %v\n", fileName, err)
		return nil
	}
	defer out.Close()

	var offset int64
	for {
		r, err := c.req("store_download_chunk", map[string]any{"downloadId": downloadID, "offset": offset, "limit": 32 * 1024})
		if err != nil {
			return err
		}
		if ok, _ := r["ok"].(bool); !ok {
			printResp(r)
			return nil
		}
		b64, _ := r["dataB64"].(string)
		chunk, err := base64.StdEncoding.DecodeString(b64)
		if err != nil {
			return err
		}
		if _, err := out.Write(chunk); err != nil {
			return err
		}
		offset += int64(len(chunk))
		done, _ := r["done"].(bool)
		if done {
			break
		}
	}
	fmt.Printf("downloaded %s (%d/%d bytes)\n", fileName, offset, int64(sizeBytes))
	return nil
}

func (c *client) doRoomCreate() error {
	gameID := c.prompt("gameId: ")
	r, err := c.req("room_create", map[string]any{"gameId": gameID})
	if err != nil {
		return err
	}
	printResp(r)
	if ok, _ := r["ok"].(bool); ok {
		if id, ok := r["roomId"].(float64); ok {
			c.roomID = int64(id)
		}
	}
	return nil
}

func (c *client) doRoomJoin() error {
	roomID, err := strconv.ParseInt(c.prompt("roomId: "), 10, 64)
	if err != nil {
		fmt.Println("invalid roomId")
		return nil
	}
	r, rerr := c.req("room_join", map[string]any{"roomId": roomID})
	if rerr != nil {
		return rerr
	}
	printResp(r)
	if ok, _ := r["ok"].(bool); ok {
		c.roomID = roomID
	}
	return nil
}

func (c *client) doRoomList() error {
	r, err := c.req("room_list", map[string]any{})
	if err != nil {
		return err
	}
	printResp(r)
	fmt.Printf("rooms: %v\n", r["rooms"])
	return nil
}

func (c *client) doRoomDetail() error {
	r, err := c.req("room_detail", map[string]any{"roomId": c.roomID})
	if err != nil {
		return err
	}
	printResp(r)
	fmt.Printf("room: %v\n", r["room"])
	return nil
}

func (c *client) doRoomStart() error {
	r, err := c.req("room_start", map[string]any{"roomId": c.roomID})
	if err != nil {
		return err
	}
	printResp(r)
	return nil
}

func (c *client) doRoomLeave() error {
	r, err := c.req("room_leave", map[string]any{})
	if err != nil {
		return err
	}
	printResp(r)
	if ok, _ := r["ok"].(bool); ok {
		c.roomID = 0
	}
	return nil
}

func (c *client) doReview() error {
	gameID := c.prompt("gameId: ")
	rating, _ := strconv.Atoi(c.prompt("rating (1-5): "))
	comment := c.prompt("comment: ")
	r, err := c.req("review_create_or_update", map[string]any{"gameId": gameID, "rating": rating, "comment": comment})
	if err != nil {
		return err
	}
	printResp(r)
	return nil
}

func (c *client) doMatchHistory() error {
	r, err := c.req("match_list_mine", map[string]any{})
	if err != nil {
		return err
	}
	printResp(r)
	fmt.Printf("logs: %v\n", r["logs"])
	return nil
}
