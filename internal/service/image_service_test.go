package service_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/tobiasfroe/cs2-portfolio-tool/internal/apperrors"
	"github.com/tobiasfroe/cs2-portfolio-tool/internal/imagestore"
	"github.com/tobiasfroe/cs2-portfolio-tool/internal/model"
	"github.com/tobiasfroe/cs2-portfolio-tool/internal/testutil"
)

const kilowattImage = "https://community.cloudflare.steamstatic.com/economy/image/kilowatt/360fx360f"

// TestImageService_ResolveItemImage tests the image resolution flow.
//
// WHY: Images are fetched from the listing page, which is expensive and rate
// limited. A persisted image must be served without touching upstream, and
// failures must be remembered briefly instead of retried on every request.
func TestImageService_ResolveItemImage(t *testing.T) {
	ctx := context.Background()

	t.Run("downloads and persists on first use", func(t *testing.T) {
		// Setup
		ts := testutil.NewTestServices(t, nil)
		ts.Client.SetListing("Kilowatt Case", testutil.ListingHTML(kilowattImage, nil))
		ts.Client.SetImage(kilowattImage, []byte("png"), "image/png")

		// Execute
		ref, err := ts.Images.ResolveItemImage(ctx, "Kilowatt Case")

		// Assert
		if err != nil {
			t.Fatalf("ResolveItemImage() returned unexpected error: %v", err)
		}
		want := "/cached_images/" + imagestore.FileName("Kilowatt Case", ".png")
		if ref != want {
			t.Errorf("Expected %s, got %s", want, ref)
		}
		if _, err := os.Stat(ts.ImageStore.Path("Kilowatt Case", ".png")); err != nil {
			t.Errorf("Expected the image on disk: %v", err)
		}
	})

	t.Run("serves the file on disk without upstream", func(t *testing.T) {
		ts := testutil.NewTestServices(t, nil)
		ts.Client.SetListing("Kilowatt Case", testutil.ListingHTML(kilowattImage, nil))
		ts.Client.SetImage(kilowattImage, []byte("webp"), "image/webp")
		first, err := ts.Images.ResolveItemImage(ctx, "Kilowatt Case")
		if err != nil {
			t.Fatalf("ResolveItemImage() returned unexpected error: %v", err)
		}

		ts.Client.SetListingError(apperrors.ErrUpstreamUnavailable)
		ts.Clock.Advance(testutil.ImageTTL + time.Hour)
		second, err := ts.Images.ResolveItemImage(ctx, "Kilowatt Case")

		if err != nil {
			t.Fatalf("ResolveItemImage() returned unexpected error: %v", err)
		}
		if second != first {
			t.Errorf("Expected %s, got %s", first, second)
		}
		if calls := ts.Client.ImageCalls(kilowattImage); calls != 1 {
			t.Errorf("Expected 1 download, got %d", calls)
		}
	})

	t.Run("a file placed on disk wins over upstream", func(t *testing.T) {
		ts := testutil.NewTestServices(t, nil)
		if err := os.WriteFile(ts.ImageStore.Path("Kilowatt Case", ".jpg"), []byte("jpg"), 0o644); err != nil {
			t.Fatalf("Failed to write image: %v", err)
		}

		ref, err := ts.Images.ResolveItemImage(ctx, "Kilowatt Case")

		if err != nil {
			t.Fatalf("ResolveItemImage() returned unexpected error: %v", err)
		}
		if ref != "/cached_images/"+imagestore.FileName("Kilowatt Case", ".jpg") {
			t.Errorf("Unexpected reference %s", ref)
		}
		if calls := ts.Client.ListingCalls("Kilowatt Case"); calls != 0 {
			t.Errorf("Expected no listing fetch, got %d", calls)
		}
	})

	t.Run("listing without an image", func(t *testing.T) {
		ts := testutil.NewTestServices(t, nil)
		ts.Client.SetListing("Kilowatt Case", testutil.ListingHTML("", nil))

		_, err := ts.Images.ResolveItemImage(ctx, "Kilowatt Case")

		if !errors.Is(err, apperrors.ErrImageNotFound) {
			t.Errorf("Expected ErrImageNotFound, got %v", err)
		}
	})

	t.Run("remembers upstream failures for the negative window", func(t *testing.T) {
		ts := testutil.NewTestServices(t, nil)

		_, err1 := ts.Images.ResolveItemImage(ctx, "Kilowatt Case")
		ts.Clock.Advance(testutil.ImageNegativeTTL - time.Second)
		_, err2 := ts.Images.ResolveItemImage(ctx, "Kilowatt Case")

		if !errors.Is(err1, apperrors.ErrUpstreamUnavailable) || !errors.Is(err2, apperrors.ErrUpstreamUnavailable) {
			t.Fatalf("Expected ErrUpstreamUnavailable twice, got %v / %v", err1, err2)
		}
		if calls := ts.Client.ListingCalls("Kilowatt Case"); calls != 1 {
			t.Errorf("Expected 1 listing fetch inside the window, got %d", calls)
		}

		ts.Client.SetListing("Kilowatt Case", testutil.ListingHTML(kilowattImage, nil))
		ts.Client.SetImage(kilowattImage, []byte("png"), "image/png")
		ts.Clock.Advance(2 * time.Second)

		ref, err := ts.Images.ResolveItemImage(ctx, "Kilowatt Case")
		if err != nil {
			t.Fatalf("Expected recovery after the window, got %v", err)
		}
		if ref == "" {
			t.Error("Expected a reference")
		}
		if calls := ts.Client.ListingCalls("Kilowatt Case"); calls != 2 {
			t.Errorf("Expected 2 listing fetches, got %d", calls)
		}
	})

	t.Run("a canceled request is not remembered as a failure", func(t *testing.T) {
		ts := testutil.NewTestServices(t, nil)
		ts.Client.SetListing("Kilowatt Case", testutil.ListingHTML(kilowattImage, nil))
		ts.Client.SetImage(kilowattImage, []byte("png"), "image/png")

		canceled, cancel := context.WithCancel(ctx)
		cancel()
		_, _ = ts.Images.ResolveItemImage(canceled, "Kilowatt Case")

		ts.Clock.Advance(time.Minute)
		ref, err := ts.Images.ResolveItemImage(ctx, "Kilowatt Case")

		if err != nil {
			t.Fatalf("Expected the image once upstream is healthy, got %v", err)
		}
		if ref != "/cached_images/"+imagestore.FileName("Kilowatt Case", ".png") {
			t.Errorf("Unexpected reference %s", ref)
		}
		if calls := ts.Client.ListingCalls("Kilowatt Case"); calls != 1 {
			t.Errorf("Expected 1 listing fetch, got %d", calls)
		}
		if calls := ts.Client.ImageCalls(kilowattImage); calls != 1 {
			t.Errorf("Expected 1 download, got %d", calls)
		}
	})

	t.Run("falls back to the external URL when the download fails", func(t *testing.T) {
		ts := testutil.NewTestServices(t, nil)
		ts.Client.SetListing("Kilowatt Case", testutil.ListingHTML(kilowattImage, nil))

		ref, err := ts.Images.ResolveItemImage(ctx, "Kilowatt Case")

		if err != nil {
			t.Fatalf("ResolveItemImage() returned unexpected error: %v", err)
		}
		if ref != kilowattImage {
			t.Errorf("Expected the external URL, got %s", ref)
		}
		if _, _, found, _ := ts.ImageStore.Find("Kilowatt Case", ""); found {
			t.Error("Expected nothing on disk")
		}

		// retried once the negative window has passed
		ts.Client.SetImage(kilowattImage, []byte("png"), "image/png")
		ts.Images.ResolveItemImage(ctx, "Kilowatt Case")
		ts.Clock.Advance(testutil.ImageNegativeTTL + time.Second)
		ref, _ = ts.Images.ResolveItemImage(ctx, "Kilowatt Case")

		if ref != "/cached_images/"+imagestore.FileName("Kilowatt Case", ".png") {
			t.Errorf("Expected the persisted reference after retry, got %s", ref)
		}
		if calls := ts.Client.ImageCalls(kilowattImage); calls != 2 {
			t.Errorf("Expected 2 downloads, got %d", calls)
		}
	})

	t.Run("downloads a fixture image directly", func(t *testing.T) {
		ts := testutil.NewTestServices(t, []model.ItemFixture{
			testutil.NewItem("Kilowatt Case").WithImage(kilowattImage).Build(),
		})
		ts.Client.SetImage(kilowattImage, []byte("jpeg"), "image/jpeg")

		ref, err := ts.Images.ResolveItemImage(ctx, "Kilowatt Case")

		if err != nil {
			t.Fatalf("ResolveItemImage() returned unexpected error: %v", err)
		}
		if ref != "/cached_images/"+imagestore.FileName("Kilowatt Case", ".jpeg") {
			t.Errorf("Unexpected reference %s", ref)
		}
		if calls := ts.Client.ListingCalls("Kilowatt Case"); calls != 0 {
			t.Errorf("Expected no listing fetch, got %d", calls)
		}
	})
}
