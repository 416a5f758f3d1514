// Terminal chat client for the Aika support service.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"aika/aika/chat"
	"aika/aika/config"
	"aika/aika/notify"
	"aika/aika/session"
	"aika/aika/sources/psql"
	"aika/aika/sources/psql/dao"
	"aika/aika/sources/storage"
	"aika/aika/utils/jsonutils"
	"aika/aika/utils/logging"

	"go.uber.org/zap"
)

func main() {
	logging.InitLogger()
	cfg := config.LoadConfig()

	surfacesPath := flag.String("surfaces", "", "path to surfaces.yaml")
	surfaceName := flag.String("surface", "", "chat surface profile to use")
	flag.Parse()

	surface := config.DefaultSurface()
	if *surfacesPath != "" {
		surfaces, err := config.LoadSurfaces(*surfacesPath)
		if err != nil {
			logging.ErrorLogger.Error("failed to load surfaces", zap.Error(err))
			os.Exit(1)
		}
		surface, err = config.FindSurface(surfaces, *surfaceName)
		if err != nil {
			logging.ErrorLogger.Error("unknown surface", zap.Error(err))
			os.Exit(1)
		}
	}

	sessionPath := cfg.SessionFile
	if sessionPath == "" {
		sessionPath = session.DefaultPath()
	}
	store := session.NewStore(sessionPath, cfg.AikaBaseURL, cfg.AuthToken)

	notifier := notify.Multi{notify.NewWriterNotifier(os.Stdout), notify.LogNotifier{}}
	client, err := chat.NewClientFromConfig(cfg, surface, store, notifier)
	if err != nil {
		logging.ErrorLogger.Error("failed to build chat client", zap.Error(err))
		os.Exit(1)
	}
	defer client.Close()

	// optional transcript archive
	if cfg.DBHost != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		db, err := psql.NewDatabase(ctx, cfg)
		cancel()
		if err != nil {
			logging.ErrorLogger.Error("transcript archive unavailable", zap.Error(err))
		} else {
			defer db.Close()
			client.SetArchiver(dao.NewTranscriptDAO(db.DB))
		}
	}

	// optional transcript export target
	var exporter *storage.MinIOClient
	if cfg.MinIOEndpoint != "" {
		exporter, err = storage.NewMinIOClient(cfg)
		if err != nil {
			logging.ErrorLogger.Error("transcript export unavailable", zap.Error(err))
			exporter = nil
		}
	}

	if err := client.Connect(context.Background()); err != nil {
		logging.ErrorLogger.Error("initial connect failed", zap.Error(err))
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		// best-effort session end on the way out
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		store.End(ctx)
		cancel()
		os.Exit(0)
	}()

	sessionID, _ := store.Current()
	fmt.Printf("\n💬 Aika siap menemanimu.\n\n")
	fmt.Println("Session:", sessionID)
	fmt.Println()
	fmt.Println("Perintah:")
	fmt.Println("  /new      - mulai topik baru")
	fmt.Println("  /clear    - bersihkan percakapan")
	fmt.Println("  /agents   - agen yang sedang bekerja")
	fmt.Println("  /activity - aktivitas agen terakhir")
	fmt.Println("  /export   - simpan percakapan ini ke penyimpanan")
	fmt.Println("  exit      - keluar")
	fmt.Println()

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("kamu> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		switch line {
		case "exit", "quit":
			ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			store.End(ctx)
			cancel()
			fmt.Println("Sampai jumpa. Jaga dirimu baik-baik. 🌱")
			return
		case "/new":
			client.NewTopic()
			fmt.Println("Topik baru dimulai.")
			continue
		case "/clear":
			client.ClearConversation()
			fmt.Println("Percakapan dibersihkan.")
			continue
		case "/agents":
			agents := client.ActiveAgents()
			if len(agents) == 0 {
				fmt.Println("Tidak ada agen yang sedang bekerja.")
			} else {
				fmt.Println("Agen aktif:", strings.Join(agents, ", "))
			}
			continue
		case "/activity":
			activity := client.Activity()
			if len(activity) == 0 {
				fmt.Println("Belum ada aktivitas.")
			} else {
				fmt.Println(jsonutils.ToJSON(activity))
			}
			continue
		case "/export":
			if exporter == nil {
				fmt.Println("Penyimpanan tidak dikonfigurasi (MINIO_ENDPOINT).")
				continue
			}
			ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			key, err := exporter.UploadTranscript(ctx, sessionID, client.ConversationID(), client.Messages())
			cancel()
			if err != nil {
				fmt.Println("⚠️  Gagal menyimpan:", err)
				continue
			}
			fmt.Println("Tersimpan sebagai", key)
			continue
		}

		before := len(client.Messages())
		if err := client.SendMessage(context.Background(), line); err != nil {
			fmt.Println("⚠️ ", err)
			continue
		}
		waitAndPrintReply(client, before)
	}
}

// waitAndPrintReply polls until the in-flight turn settles, then prints
// the bubbles it produced.
func waitAndPrintReply(client *chat.Client, before int) {
	for client.IsLoading() {
		time.Sleep(50 * time.Millisecond)
	}
	msgs := client.Messages()
	if before > len(msgs) {
		before = len(msgs)
	}
	for _, m := range msgs[before:] {
		if m.Role != "assistant" {
			continue
		}
		if m.IsError {
			fmt.Printf("\n⚠️  %s\n", m.Content)
			continue
		}
		fmt.Printf("\naika> %s\n", m.Content)
	}
	fmt.Println()
}
