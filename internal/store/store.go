package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/ironsheep/face-detect-mcp/internal/faces"
)

// Store manages the PostgreSQL connection used to keep detection results.
type Store struct {
	conn *pgx.Conn
}

// Image is one row of the images table.
type Image struct {
	ID         string
	Path       string
	Width      int
	Height     int
	FaceCount  int
	DetectedAt time.Time
}

// FaceRecord is a stored face in source image pixels.
type FaceRecord struct {
	Index     int
	Score     float32
	X, Y      int
	W, H      int
	Landmarks []int32
}

// New establishes a connection to the database and ensures the schema is initialized.
func New(ctx context.Context, connString string) (*Store, error) {
	conn, err := pgx.Connect(ctx, connString)
	if err != nil {
		return nil, err
	}

	if err := initSchema(ctx, conn); err != nil {
		conn.Close(ctx)
		return nil, fmt.Errorf("failed to initialize database schema: %w", err)
	}

	return &Store{conn: conn}, nil
}

func initSchema(ctx context.Context, conn *pgx.Conn) error {
	query := `
		CREATE TABLE IF NOT EXISTS images (
			id TEXT PRIMARY KEY,
			path TEXT NOT NULL,
			width INT NOT NULL,
			height INT NOT NULL,
			detected_at TIMESTAMPTZ DEFAULT NOW()
		);
		CREATE TABLE IF NOT EXISTS face_detections (
			id BIGSERIAL PRIMARY KEY,
			image_id TEXT NOT NULL REFERENCES images(id) ON DELETE CASCADE,
			face_index INT NOT NULL,
			score REAL NOT NULL,
			x INT NOT NULL,
			y INT NOT NULL,
			w INT NOT NULL,
			h INT NOT NULL,
			landmarks INT[] NOT NULL
		);
		CREATE INDEX IF NOT EXISTS face_detections_image_id_idx ON face_detections (image_id);
	`
	_, err := conn.Exec(ctx, query)
	return err
}

// Close terminates the database connection.
func (s *Store) Close(ctx context.Context) {
	s.conn.Close(ctx)
}

// ImageID derives a stable identifier for the file at path from its
// absolute path, size and modification time. Editing the file changes it.
func ImageID(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", err
	}
	h := sha256.New()
	h.Write([]byte(abs))
	h.Write([]byte{0})
	h.Write([]byte(strconv.FormatInt(info.Size(), 10)))
	h.Write([]byte{0})
	h.Write([]byte(strconv.FormatInt(info.ModTime().UnixNano(), 10)))
	return hex.EncodeToString(h.Sum(nil))[:32], nil
}

// EnsureImage registers the image in the database. Re-detecting an image
// replaces its earlier faces.
func (s *Store) EnsureImage(ctx context.Context, id, path string, width, height int) error {
	if _, err := s.conn.Exec(ctx, "DELETE FROM face_detections WHERE image_id = $1", id); err != nil {
		return err
	}

	_, err := s.conn.Exec(ctx, `
		INSERT INTO images (id, path, width, height, detected_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (id) DO UPDATE SET
			path = EXCLUDED.path,
			width = EXCLUDED.width,
			height = EXCLUDED.height,
			detected_at = NOW()
	`, id, path, width, height)
	return err
}

// InsertFaces stores every face of one image in a single round trip.
func (s *Store) InsertFaces(ctx context.Context, imageID string, recs []FaceRecord) error {
	if len(recs) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, r := range recs {
		batch.Queue(`
			INSERT INTO face_detections (image_id, face_index, score, x, y, w, h, landmarks)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`, imageID, r.Index, r.Score, r.X, r.Y, r.W, r.H, r.Landmarks)
	}

	br := s.conn.SendBatch(ctx, batch)
	defer br.Close()
	for i := range recs {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("failed to insert face %d: %w", i, err)
		}
	}
	return nil
}

// SaveResult records res for the image at path, replacing earlier results.
func (s *Store) SaveResult(ctx context.Context, id, path string, res *faces.Result) error {
	if err := s.EnsureImage(ctx, id, path, res.Width, res.Height); err != nil {
		return fmt.Errorf("failed to register image: %w", err)
	}
	return s.InsertFaces(ctx, id, Records(res))
}

// ListImages returns every stored image with its face count, newest first.
func (s *Store) ListImages(ctx context.Context) ([]Image, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT i.id, i.path, i.width, i.height, i.detected_at, COUNT(f.id)
		FROM images i
		LEFT JOIN face_detections f ON f.image_id = i.id
		GROUP BY i.id
		ORDER BY i.detected_at DESC, i.path
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var images []Image
	for rows.Next() {
		var img Image
		if err := rows.Scan(&img.ID, &img.Path, &img.Width, &img.Height, &img.DetectedAt, &img.FaceCount); err != nil {
			return nil, err
		}
		images = append(images, img)
	}
	return images, rows.Err()
}

// FacesForImage returns the stored faces of one image in detection order.
func (s *Store) FacesForImage(ctx context.Context, imageID string) ([]FaceRecord, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT face_index, score, x, y, w, h, landmarks
		FROM face_detections
		WHERE image_id = $1
		ORDER BY face_index
	`, imageID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []FaceRecord
	for rows.Next() {
		var r FaceRecord
		if err := rows.Scan(&r.Index, &r.Score, &r.X, &r.Y, &r.W, &r.H, &r.Landmarks); err != nil {
			return nil, err
		}
		recs = append(recs, r)
	}
	return recs, rows.Err()
}

// Reset drops all tables. Used for testing or complete wipes.
func (s *Store) Reset(ctx context.Context) error {
	_, err := s.conn.Exec(ctx, "DROP TABLE IF EXISTS face_detections, images CASCADE")
	if err != nil {
		return err
	}
	return initSchema(ctx, s.conn)
}

// Records converts the faces of res to source image pixels.
func Records(res *faces.Result) []FaceRecord {
	scale := res.Scale()
	recs := make([]FaceRecord, len(res.Faces))
	for i, f := range res.Faces {
		r := f.SourceRect(scale)
		lm := make([]int32, 0, 10)
		for _, p := range f.SourcePoints(scale) {
			lm = append(lm, int32(p.X), int32(p.Y))
		}
		recs[i] = FaceRecord{
			Index:     i,
			Score:     f.Confidence,
			X:         r.Min.X,
			Y:         r.Min.Y,
			W:         r.Dx(),
			H:         r.Dy(),
			Landmarks: lm,
		}
	}
	return recs
}

// PayloadID derives an identifier for image bytes that have no file on
// disk, such as worker payloads.
func PayloadID(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])[:32]
}
