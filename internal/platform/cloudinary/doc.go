// Package cloudinary hosts generated images on Cloudinary and renders share
// card recipes as Cloudinary transformation URLs. The card is composited by
// Cloudinary when the URL is first requested, so composing never uploads
// anything.
package cloudinary
