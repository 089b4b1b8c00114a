// chessctl creates games, issues tokens and plays from a terminal.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/park285/chess-live-server/internal/auth"
	"github.com/park285/chess-live-server/internal/chess"
	"github.com/park285/chess-live-server/internal/notation"
	"github.com/park285/chess-live-server/internal/store"
	"github.com/park285/chess-live-server/internal/wsclient"
	"github.com/park285/chess-live-server/pkg/chessdto"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	var err error
	switch os.Args[1] {
	case "newgame":
		err = newGame(os.Args[2:])
	case "token":
		err = issueToken(os.Args[2:])
	case "play":
		err = play(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		log.Fatalf("%s: %v", os.Args[1], err)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, strings.Join([]string{
		"usage: chessctl <command> [flags]",
		"  newgame -name <name>                       create a game in Redis",
		"  token -user <name> [-ttl 12h]              issue an auth token",
		"  play -token <t> -game <id> [-color WHITE|BLACK|observe] [-url ws://host:8080/ws]",
	}, "\n"))
}

func redisURL() (string, error) {
	u := strings.TrimSpace(os.Getenv("REDIS_URL"))
	if u == "" {
		return "", fmt.Errorf("REDIS_URL is required")
	}
	return u, nil
}

func newGame(args []string) error {
	fs := flag.NewFlagSet("newgame", flag.ExitOnError)
	name := fs.String("name", "", "game name")
	ttl := fs.Duration("ttl", 24*time.Hour, "record TTL")
	_ = fs.Parse(args)
	if strings.TrimSpace(*name) == "" {
		return fmt.Errorf("-name is required")
	}
	u, err := redisURL()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	rdb, err := store.Dial(ctx, u)
	if err != nil {
		return err
	}
	defer rdb.Close()

	rec := store.NewGameRecord(uuid.NewString(), *name, chess.NewGame().Snapshot())
	if err := store.NewRedisRepository(rdb, *ttl).Create(ctx, rec); err != nil {
		return err
	}
	fmt.Println(rec.GameID)
	return nil
}

func issueToken(args []string) error {
	fs := flag.NewFlagSet("token", flag.ExitOnError)
	user := fs.String("user", "", "username")
	ttl := fs.Duration("ttl", 12*time.Hour, "token TTL")
	_ = fs.Parse(args)
	u, err := redisURL()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	rdb, err := store.Dial(ctx, u)
	if err != nil {
		return err
	}
	defer rdb.Close()

	tok, err := auth.NewRedisTokens(rdb, *ttl).Issue(ctx, *user)
	if err != nil {
		return err
	}
	fmt.Println(tok)
	return nil
}

func play(args []string) error {
	fs := flag.NewFlagSet("play", flag.ExitOnError)
	url := fs.String("url", "ws://localhost:8080/ws", "server websocket url")
	token := fs.String("token", "", "auth token")
	gameID := fs.String("game", "", "game id")
	color := fs.String("color", "observe", "WHITE, BLACK or observe")
	_ = fs.Parse(args)
	if *token == "" || *gameID == "" {
		return fmt.Errorf("-token and -game are required")
	}

	c := wsclient.New(*url)
	ctx := context.Background()
	if err := c.Connect(ctx); err != nil {
		return err
	}
	defer func() {
		cctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = c.Close(cctx)
	}()
	c.OnMessage(printMessage)

	join := chessdto.Command{CommandType: chessdto.CommandJoinObserver, AuthToken: *token, GameID: *gameID}
	if !strings.EqualFold(*color, "observe") {
		join.CommandType = chessdto.CommandJoinPlayer
		join.PlayerColor = strings.ToUpper(*color)
	}
	if err := c.Send(ctx, join); err != nil {
		return err
	}

	fmt.Println("enter moves as e2e4 (e7e8q to promote), or: resign, leave")
	lines := make(chan string)
	go func() {
		sc := bufio.NewScanner(os.Stdin)
		for sc.Scan() {
			lines <- strings.TrimSpace(sc.Text())
		}
		close(lines)
	}()

	for {
		select {
		case <-c.Done():
			return c.Err()
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			cmd := chessdto.Command{AuthToken: *token, GameID: *gameID}
			switch strings.ToLower(line) {
			case "":
				continue
			case "resign":
				cmd.CommandType = chessdto.CommandResign
			case "leave", "quit", "exit":
				cmd.CommandType = chessdto.CommandLeave
				_ = c.Send(ctx, cmd)
				return nil
			default:
				mv, err := chess.ParseUCI(line)
				if err != nil {
					fmt.Println("?", err)
					continue
				}
				dto := chess.EncodeMove(mv)
				cmd.CommandType = chessdto.CommandMakeMove
				cmd.Move = &dto
			}
			if err := c.Send(ctx, cmd); err != nil {
				return err
			}
		}
	}
}

func printMessage(m chessdto.ServerMessage) {
	switch m.ServerMessageType {
	case chessdto.MessageLoadGame:
		if m.Game == nil {
			return
		}
		g, err := chess.Restore(m.Game.State)
		if err != nil {
			fmt.Println("bad state:", err)
			return
		}
		fmt.Print(g.Board().String())
		fmt.Printf("%s | white=%s black=%s | %s\n", notation.FEN(g), orDash(m.Game.WhiteUsername), orDash(m.Game.BlackUsername), m.Game.Status)
		if m.Game.Result != nil {
			fmt.Printf("result: %s by %s\n", orDash(m.Game.Result.Winner), m.Game.Result.Method)
		}
	case chessdto.MessageNotification:
		fmt.Println("*", m.Message)
	case chessdto.MessageError:
		fmt.Printf("! %s (%s)\n", m.ErrorMessage, m.ErrorCode)
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
