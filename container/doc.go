// Package container reads and writes the video containers that carry etched
// frames.
//
// Containers are provided by named backends. Three are available:
//
//   - "avi": a pure Go RIFF/AVI writer and reader. Frames are stored as PNG
//     images ("MPNG", lossless, the default) or as uncompressed bottom-up
//     BGR bitmaps ("DIB ").
//   - "imageseq": a directory of numbered frame files, BMP ("BMP ", the
//     default) or PNG ("PNG ").
//   - "opencv": OpenCV's VideoWriter/VideoCapture through gocv, compiled in
//     with the "opencv" build tag. It tries the "png " codec first and falls
//     back to "avc1".
//
// Writing tries the primary codec and, if the container cannot be created,
// retries exactly once with the fallback codec:
//
//	err := container.WriteAll("out.avi", frames, container.Options{FPS: 10})
//	if errors.Is(err, container.ErrContainerOpen) {
//	    // neither codec was accepted
//	}
//
// Reading is lazy and forward-only:
//
//	r, err := container.Open("out.avi", container.Options{})
//	if err != nil {
//	    return err
//	}
//	defer r.Close()
//	for {
//	    img, err := r.Next()
//	    if err == io.EOF {
//	        break
//	    }
//	    // ...
//	}
//
// Lossy codecs such as avc1 do not preserve pixel values exactly; block
// averaging may still recover the payload for large blocks, but this is not
// guaranteed.
package container
