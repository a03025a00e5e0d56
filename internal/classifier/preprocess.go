package classifier

import (
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"

	"golang.org/x/image/draw"
)

// Preprocess decodes an image, resizes it to size x size with nearest-neighbour
// sampling, scales RGB to [0,1] and adds a leading batch dimension of 1.
// Alpha is dropped, not premultiplied.
func Preprocess(r io.Reader, size int) (*Tensor, error) {
	if size <= 0 {
		return nil, fmt.Errorf("invalid input size %d", size)
	}

	src, _, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	if b := src.Bounds(); b.Dx() == 0 || b.Dy() == 0 {
		return nil, fmt.Errorf("image has no pixels")
	}

	dst := image.NewNRGBA(image.Rect(0, 0, size, size))
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)

	data := make([]float32, 0, size*size*3)
	for y := 0; y < size; y++ {
		row := dst.Pix[y*dst.Stride : y*dst.Stride+size*4]
		for x := 0; x < size; x++ {
			px := row[x*4 : x*4+3]
			data = append(data,
				float32(px[0])/255,
				float32(px[1])/255,
				float32(px[2])/255,
			)
		}
	}

	return &Tensor{
		Shape: []int{1, size, size, 3},
		Data:  data,
	}, nil
}
