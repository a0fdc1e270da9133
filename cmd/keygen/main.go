// Command keygen prints a fresh RSA signing key pair as PKCS#8 and PKIX PEM. With -out it
// writes private.pem and public.pem instead; with -upload it also stores both under an
// s3://bucket/prefix reference the api can load them from.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/NeZlox/authorization-service/internal/config"
	"github.com/NeZlox/authorization-service/internal/log"
	"github.com/NeZlox/authorization-service/internal/security"
	"github.com/NeZlox/authorization-service/internal/storage"
)

func main() {
	bits := flag.Int("bits", 2048, "RSA key size")
	out := flag.String("out", "", "directory to write private.pem and public.pem to")
	upload := flag.String("upload", "", "s3://bucket/prefix to store the key pair under")
	flag.Parse()

	privPEM, pubPEM, err := security.GenerateRSAKeyPair(*bits)
	if err != nil {
		fmt.Fprintln(os.Stderr, "generate key pair:", err)
		os.Exit(1)
	}

	if *out == "" {
		fmt.Print(string(privPEM))
		fmt.Print(string(pubPEM))
	} else {
		if err := writeKeyFiles(*out, privPEM, pubPEM); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}

	if *upload != "" {
		if err := uploadKeys(*upload, privPEM, pubPEM); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}
}

func writeKeyFiles(dir string, privPEM, pubPEM []byte) error {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	if err := os.WriteFile(filepath.Join(dir, "private.pem"), privPEM, 0o600); err != nil {
		return fmt.Errorf("write private key: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "public.pem"), pubPEM, 0o644); err != nil {
		return fmt.Errorf("write public key: %w", err)
	}
	return nil
}

func uploadKeys(ref string, privPEM, pubPEM []byte) error {
	bucket, prefix, _ := strings.Cut(strings.TrimPrefix(ref, "s3://"), "/")
	if !strings.HasPrefix(ref, "s3://") || bucket == "" {
		return fmt.Errorf("upload target must look like s3://bucket/prefix, got %q", ref)
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := log.New(cfg.Environment)

	store, err := storage.NewObjectStore(cfg.Storage)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for name, data := range map[string][]byte{"private.pem": privPEM, "public.pem": pubPEM} {
		object := path.Join(prefix, name)
		if err := store.PutObject(ctx, bucket, object, data); err != nil {
			return fmt.Errorf("upload %s: %w", name, err)
		}
		logger.Info().Str("key", fmt.Sprintf("s3://%s/%s", bucket, object)).Msg("key uploaded")
	}
	return nil
}
