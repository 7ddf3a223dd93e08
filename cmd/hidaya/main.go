package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

const usage = `Usage: hidaya [flags] <commande> [args]

Commandes:
  health | version         état et version du serveur
  chapters                 liste des sourates
  open <n>                 ouvre la sourate n
  close                    revient à la liste
  reader                   sourate ouverte et versets
  play <i> | toggle <i>    lit le verset d'index i
  all                      lecture continue (bascule)
  stop                     arrête la lecture
  status                   état de la lecture
  speed <x> | volume <x>   règle la vitesse ou le volume
  search <texte>           recherche sourates et versets
  daily                    verset du jour
  prayer [lat lon]         horaires de prière
  prefetch <n> [récitateur] télécharge l'audio de la sourate n
  jobs | offline           jobs et sourates disponibles hors-ligne`

func main() {
	baseURL := flag.String("server", envOr("HIDAYA_SERVER_URL", "http://127.0.0.1:8080"), "URL du serveur (ex: http://127.0.0.1:8080)")
	timeout := flag.Duration("timeout", 30*time.Second, "Timeout HTTP")
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	client := &http.Client{Timeout: *timeout}
	api := strings.TrimRight(*baseURL, "/") + "/api/v1"

	switch args[0] {
	case "health":
		run(client, http.MethodGet, api+"/health", nil)
	case "version":
		run(client, http.MethodGet, api+"/version", nil)
	case "chapters":
		run(client, http.MethodGet, api+"/chapters", nil)
	case "open":
		n := intArg(args, 1, "open <n>")
		run(client, http.MethodPost, api+"/reader/open", map[string]any{"chapter": n})
	case "close":
		run(client, http.MethodPost, api+"/reader/close", nil)
	case "reader":
		run(client, http.MethodGet, api+"/reader", nil)
	case "play":
		i := intArg(args, 1, "play <i>")
		run(client, http.MethodPost, api+"/playback/play/"+strconv.Itoa(i), nil)
	case "toggle":
		i := intArg(args, 1, "toggle <i>")
		run(client, http.MethodPost, api+"/playback/toggle/"+strconv.Itoa(i), nil)
	case "all":
		run(client, http.MethodPost, api+"/playback/toggle-all", nil)
	case "stop":
		run(client, http.MethodPost, api+"/playback/stop", nil)
	case "status":
		run(client, http.MethodGet, api+"/playback", nil)
	case "speed", "volume":
		v := floatArg(args, 1, args[0]+" <x>")
		run(client, http.MethodPut, api+"/playback/"+args[0], map[string]any{"value": v})
	case "search":
		if len(args) < 2 {
			fail("search <texte>")
		}
		q := url.Values{"q": {strings.Join(args[1:], " ")}}
		run(client, http.MethodGet, api+"/search?"+q.Encode(), nil)
	case "daily":
		run(client, http.MethodGet, api+"/daily", nil)
	case "prayer":
		u := api + "/prayer-times"
		if len(args) >= 3 {
			q := url.Values{"lat": {args[1]}, "lon": {args[2]}}
			u += "?" + q.Encode()
		}
		run(client, http.MethodGet, u, nil)
	case "prefetch":
		n := intArg(args, 1, "prefetch <n> [récitateur]")
		params := map[string]any{"chapter": n}
		if len(args) >= 3 {
			params["reciter"] = args[2]
		}
		run(client, http.MethodPost, api+"/jobs", map[string]any{"type": "prefetch", "params": params})
	case "jobs":
		run(client, http.MethodGet, api+"/jobs", nil)
	case "offline":
		run(client, http.MethodGet, api+"/offline", nil)
	default:
		fmt.Fprintln(os.Stderr, "Commande inconnue:", args[0])
		os.Exit(2)
	}
}

func run(client *http.Client, method, target string, body any) {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			fmt.Fprintln(os.Stderr, "Erreur:", err)
			os.Exit(1)
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, target, rd)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Erreur:", err)
		os.Exit(1)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := client.Do(req)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Erreur:", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	b, _ := io.ReadAll(resp.Body)
	var pretty any
	if err := json.Unmarshal(b, &pretty); err == nil {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		_ = enc.Encode(pretty)
	} else {
		os.Stdout.Write(b)
		os.Stdout.Write([]byte("\n"))
	}
	if resp.StatusCode >= 400 {
		os.Exit(1)
	}
}

func intArg(args []string, i int, hint string) int {
	if len(args) <= i {
		fail(hint)
	}
	n, err := strconv.Atoi(args[i])
	if err != nil {
		fail(hint)
	}
	return n
}

func floatArg(args []string, i int, hint string) float64 {
	if len(args) <= i {
		fail(hint)
	}
	f, err := strconv.ParseFloat(args[i], 64)
	if err != nil {
		fail(hint)
	}
	return f
}

func fail(hint string) {
	fmt.Fprintln(os.Stderr, "Usage: hidaya", hint)
	os.Exit(2)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
