package keypoints

import (
	"context"
	"image"
	"testing"

	"go.viam.com/test"

	"go.viam.com/vo/logging"
)

func TestMatchDescriptors(t *testing.T) {
	logger := logging.NewTestLogger(t)
	desc1 := Descriptors{{0x0}, {0xFF}, {0xF0F0}}
	desc2 := Descriptors{{0xFF}, {0x1}, {0xF0F0}}

	matches := MatchDescriptors(context.Background(), desc1, desc2, &MatchingConfig{DoCrossCheck: true}, logger)
	test.That(t, len(matches), test.ShouldEqual, 3)
	test.That(t, matches[0].Distance, test.ShouldEqual, 0)
	test.That(t, matches[1].Distance, test.ShouldEqual, 0)
	test.That(t, matches[2], test.ShouldResemble, DescriptorMatch{Idx1: 0, Idx2: 1, Distance: 1})
	test.That(t, matches[:2], test.ShouldContain, DescriptorMatch{Idx1: 1, Idx2: 0, Distance: 0})
	test.That(t, matches[:2], test.ShouldContain, DescriptorMatch{Idx1: 2, Idx2: 2, Distance: 0})

	matches = MatchDescriptors(context.Background(), desc1, desc2, &MatchingConfig{DoCrossCheck: true, MaxDist: 1}, logger)
	test.That(t, len(matches), test.ShouldEqual, 2)
	for _, m := range matches {
		test.That(t, m.Distance, test.ShouldEqual, 0)
	}
}

func TestMatchDescriptorsCrossCheck(t *testing.T) {
	logger := logging.NewTestLogger(t)
	desc1 := Descriptors{{0x0}, {0x1}}
	desc2 := Descriptors{{0x3}}

	matches := MatchDescriptors(context.Background(), desc1, desc2, &MatchingConfig{}, logger)
	test.That(t, matches, test.ShouldResemble, []DescriptorMatch{
		{Idx1: 1, Idx2: 0, Distance: 1},
		{Idx1: 0, Idx2: 0, Distance: 2},
	})

	matches = MatchDescriptors(context.Background(), desc1, desc2, &MatchingConfig{DoCrossCheck: true}, logger)
	test.That(t, matches, test.ShouldResemble, []DescriptorMatch{{Idx1: 1, Idx2: 0, Distance: 1}})
}

func TestMatchDescriptorsDegenerate(t *testing.T) {
	logger, logs := logging.NewObservedTestLogger(t)
	cfg := &MatchingConfig{DoCrossCheck: true}
	test.That(t, MatchDescriptors(context.Background(), nil, Descriptors{{0}}, cfg, logger), test.ShouldBeEmpty)
	test.That(t, MatchDescriptors(context.Background(), Descriptors{{0}}, nil, cfg, logger), test.ShouldBeEmpty)

	// descriptors of different sizes cannot be compared
	matches := MatchDescriptors(context.Background(), Descriptors{{0, 0}}, Descriptors{{0}}, cfg, logger)
	test.That(t, matches, test.ShouldBeEmpty)
	test.That(t, logs.FilterMessage("cannot compute descriptor distances").Len(), test.ShouldEqual, 1)
}

func TestGetMatchingKeyPoints(t *testing.T) {
	kps1 := KeyPoints{{0, 0}, {1, 1}}
	kps2 := KeyPoints{{5, 5}, {6, 6}, {7, 7}}
	m1, m2, err := GetMatchingKeyPoints([]DescriptorMatch{{Idx1: 1, Idx2: 2}, {Idx1: 0, Idx2: 0}}, kps1, kps2)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, m1, test.ShouldResemble, KeyPoints{{1, 1}, {0, 0}})
	test.That(t, m2, test.ShouldResemble, KeyPoints{{7, 7}, {5, 5}})

	_, _, err = GetMatchingKeyPoints([]DescriptorMatch{{Idx1: 2, Idx2: 0}}, kps1, kps2)
	test.That(t, err, test.ShouldNotBeNil)
	_, _, err = GetMatchingKeyPoints([]DescriptorMatch{{Idx1: 0, Idx2: 3}}, kps1, kps2)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestPlotting(t *testing.T) {
	dir := t.TempDir()
	img := createTestImage()
	kps := ComputeFAST(img, defaultFASTConfig())
	test.That(t, PlotKeypoints(img, kps, dir+"/keypoints.png"), test.ShouldBeNil)

	out, err := PlotMatchedLines(img, img, kps, kps, false)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out.Bounds().Size(), test.ShouldResemble, image.Point{600, 200})
	out, err = PlotMatchedLines(img, img, kps, kps, true)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out.Bounds().Size(), test.ShouldResemble, image.Point{300, 400})
	_, err = PlotMatchedLines(img, img, kps, kps[:1], true)
	test.That(t, err, test.ShouldNotBeNil)
}
